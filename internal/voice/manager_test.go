package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeConn struct {
	mu         sync.Mutex
	destroyed  bool
	readyErr   error
	readyDelay time.Duration
	destroyErr error
}

func (c *fakeConn) WaitReady(ctx context.Context) error {
	if c.readyDelay > 0 {
		select {
		case <-time.After(c.readyDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.readyErr
}

func (c *fakeConn) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *fakeConn) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	return c.destroyErr
}

type fakeDialer struct {
	dials atomic.Int64
	delay time.Duration
	err   error
	conn  func() *fakeConn
}

func (d *fakeDialer) Dial(guildID, channelID string) (Connection, error) {
	d.dials.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.conn != nil {
		return d.conn(), nil
	}
	return &fakeConn{}, nil
}

type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	stopErr error
	stopped bool
	events  chan Event
}

func newFakePlayer(Connection) Player {
	return &fakePlayer{events: make(chan Event)}
}

func (p *fakePlayer) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, path)
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	close(p.events)
	return p.stopErr
}

func (p *fakePlayer) Events() <-chan Event { return p.events }

func fullCaps() Capabilities { return Capabilities{Connect: true, Speak: true} }

func voiceRequest(guildID string) JoinRequest {
	return JoinRequest{GuildID: guildID, ChannelID: "chan-1", Kind: KindVoice, Caps: fullCaps()}
}

func TestManager_JoinIdempotent(t *testing.T) {
	d := &fakeDialer{}
	m := NewManager(d, newFakePlayer)

	first, err := m.Join(context.Background(), voiceRequest("g1"))
	if err != nil {
		t.Fatalf("first Join returned error: %v", err)
	}
	second, err := m.Join(context.Background(), voiceRequest("g1"))
	if err != nil {
		t.Fatalf("second Join returned error: %v", err)
	}

	if first != second {
		t.Fatalf("expected the same connection handle from both joins")
	}
	if got := d.dials.Load(); got != 1 {
		t.Fatalf("expected exactly one dial, got %d", got)
	}
	if !m.IsActive("g1") {
		t.Fatalf("expected guild g1 active after join")
	}
}

func TestManager_JoinValidation(t *testing.T) {
	tests := []struct {
		name string
		req  JoinRequest
		want error
	}{
		{
			name: "text channel",
			req:  JoinRequest{GuildID: "g1", ChannelID: "c1", Kind: KindUnknown, Caps: fullCaps()},
			want: ErrNotVoiceChannel,
		},
		{
			name: "no guild",
			req:  JoinRequest{ChannelID: "c1", Kind: KindVoice, Caps: fullCaps()},
			want: ErrNoGuild,
		},
		{
			name: "missing connect",
			req:  JoinRequest{GuildID: "g1", ChannelID: "c1", Kind: KindVoice, Caps: Capabilities{Speak: true}},
			want: ErrMissingConnect,
		},
		{
			name: "missing speak",
			req:  JoinRequest{GuildID: "g1", ChannelID: "c1", Kind: KindVoice, Caps: Capabilities{Connect: true}},
			want: ErrMissingSpeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDialer{}
			m := NewManager(d, newFakePlayer)

			if _, err := m.Join(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("Join error = %v, want %v", err, tt.want)
			}
			if d.dials.Load() != 0 {
				t.Fatalf("validation failure must not dial")
			}
			if m.IsActive("g1") {
				t.Fatalf("validation failure must not register a session")
			}
		})
	}
}

func TestManager_JoinStageChannelAccepted(t *testing.T) {
	m := NewManager(&fakeDialer{}, newFakePlayer)

	req := JoinRequest{GuildID: "g1", ChannelID: "c1", Kind: KindStage, Caps: fullCaps()}
	if _, err := m.Join(context.Background(), req); err != nil {
		t.Fatalf("stage channel join returned error: %v", err)
	}
}

func TestManager_JoinHandshakeFailureDestroysConnection(t *testing.T) {
	conn := &fakeConn{readyErr: errors.New("handshake rejected")}
	d := &fakeDialer{conn: func() *fakeConn { return conn }}
	m := NewManager(d, newFakePlayer)

	_, err := m.Join(context.Background(), voiceRequest("g1"))
	if err == nil {
		t.Fatalf("expected join to fail")
	}
	if !conn.Destroyed() {
		t.Fatalf("expected the half-open connection to be destroyed")
	}
	if m.IsActive("g1") {
		t.Fatalf("no session may be registered after a failed handshake")
	}

	// A later join starts over with a fresh dial.
	if _, err := m.Join(context.Background(), voiceRequest("g1")); err == nil {
		t.Fatalf("expected the retry to fail the same way")
	}
	if got := d.dials.Load(); got != 2 {
		t.Fatalf("expected a second dial on retry, got %d", got)
	}
}

func TestManager_JoinReadinessTimeout(t *testing.T) {
	conn := &fakeConn{readyDelay: time.Hour}
	d := &fakeDialer{conn: func() *fakeConn { return conn }}
	m := NewManager(d, newFakePlayer)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := m.Join(ctx, voiceRequest("g1")); err == nil {
		t.Fatalf("expected join to fail when the handshake never completes")
	}
	if !conn.Destroyed() {
		t.Fatalf("expected the half-open connection to be destroyed on timeout")
	}
	if m.IsActive("g1") {
		t.Fatalf("no session may be registered after a timeout")
	}
}

func TestManager_JoinEncryptionRemediation(t *testing.T) {
	d := &fakeDialer{err: ErrEncryptionUnsupported}
	m := NewManager(d, newFakePlayer)

	_, err := m.Join(context.Background(), voiceRequest("g1"))
	if err == nil {
		t.Fatalf("expected join to fail")
	}
	if !errors.Is(err, ErrEncryptionUnsupported) {
		t.Fatalf("error should wrap ErrEncryptionUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "install") {
		t.Fatalf("error should mention the remediation step, got %q", err)
	}
}

func TestManager_ConcurrentJoinsShareOneDial(t *testing.T) {
	d := &fakeDialer{delay: 30 * time.Millisecond}
	m := NewManager(d, newFakePlayer)

	var wg sync.WaitGroup
	conns := make([]Connection, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conns[i], errs[i] = m.Join(context.Background(), voiceRequest("g1"))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("join %d returned error: %v", i, errs[i])
		}
	}
	if conns[0] != conns[1] {
		t.Fatalf("expected both joins to end up on the same connection")
	}
	if got := d.dials.Load(); got != 1 {
		t.Fatalf("expected one dial for two concurrent joins, got %d", got)
	}
}

func TestManager_PlayFormatRejection(t *testing.T) {
	m := NewManager(&fakeDialer{}, newFakePlayer)

	if _, err := m.Join(context.Background(), voiceRequest("g1")); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	err := m.Play("g1", "clip.mp3")
	if err == nil {
		t.Fatalf("expected mp3 playback to be rejected")
	}
	if !strings.Contains(err.Error(), "clip.mp3") {
		t.Fatalf("rejection should name the file, got %q", err)
	}

	m.mu.Lock()
	p := m.sessions["g1"].player.(*fakePlayer)
	m.mu.Unlock()
	if len(p.played) != 0 {
		t.Fatalf("rejected playback must not touch the player")
	}
}

func TestManager_PlayAcceptedFormats(t *testing.T) {
	m := NewManager(&fakeDialer{}, newFakePlayer)

	if _, err := m.Join(context.Background(), voiceRequest("g1")); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	for _, path := range []string{"a.opus", "b.ogg", "c.OGA"} {
		if err := m.Play("g1", path); err != nil {
			t.Fatalf("Play(%q) returned error: %v", path, err)
		}
	}

	m.mu.Lock()
	p := m.sessions["g1"].player.(*fakePlayer)
	m.mu.Unlock()
	if len(p.played) != 3 {
		t.Fatalf("expected 3 plays through the same player, got %d", len(p.played))
	}
}

func TestManager_PlayWithoutSession(t *testing.T) {
	m := NewManager(&fakeDialer{}, newFakePlayer)

	if err := m.Play("g1", "a.opus"); !errors.Is(err, ErrNoActiveConnection) {
		t.Fatalf("Play without session: error = %v, want ErrNoActiveConnection", err)
	}
}

func TestManager_LeaveAlwaysRemovesRegistryEntry(t *testing.T) {
	conn := &fakeConn{destroyErr: errors.New("transport already gone")}
	d := &fakeDialer{conn: func() *fakeConn { return conn }}

	failingPlayer := func(Connection) Player {
		return &fakePlayer{events: make(chan Event), stopErr: errors.New("stop exploded")}
	}
	m := NewManager(d, failingPlayer)

	if _, err := m.Join(context.Background(), voiceRequest("g1")); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	if existed := m.Leave("g1"); !existed {
		t.Fatalf("Leave should report an existing session")
	}
	if m.IsActive("g1") {
		t.Fatalf("registry entry must be removed even when stop and destroy fail")
	}
	if existed := m.Leave("g1"); existed {
		t.Fatalf("second Leave should report no session")
	}
}

func TestManager_IsActiveAfterConnectionDeath(t *testing.T) {
	conn := &fakeConn{}
	d := &fakeDialer{conn: func() *fakeConn { return conn }}
	m := NewManager(d, newFakePlayer)

	if _, err := m.Join(context.Background(), voiceRequest("g1")); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if !m.IsActive("g1") {
		t.Fatalf("expected active session")
	}

	_ = conn.Destroy()
	if m.IsActive("g1") {
		t.Fatalf("a destroyed connection is not active")
	}

	// The dead session is replaced on the next join rather than reused.
	if _, err := m.Join(context.Background(), voiceRequest("g1")); err != nil {
		t.Fatalf("rejoin returned error: %v", err)
	}
	if got := d.dials.Load(); got != 2 {
		t.Fatalf("expected a fresh dial after the connection died, got %d", got)
	}
}

func TestManager_DestroyAll(t *testing.T) {
	m := NewManager(&fakeDialer{}, newFakePlayer)

	for _, g := range []string{"g1", "g2", "g3"} {
		if _, err := m.Join(context.Background(), voiceRequest(g)); err != nil {
			t.Fatalf("Join(%s) returned error: %v", g, err)
		}
	}
	if got := m.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}

	m.DestroyAll()

	if got := m.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount after DestroyAll = %d, want 0", got)
	}
	for _, g := range []string{"g1", "g2", "g3"} {
		if m.IsActive(g) {
			t.Fatalf("guild %s still active after DestroyAll", g)
		}
	}
}

func TestManager_PlayAfterLeave(t *testing.T) {
	m := NewManager(&fakeDialer{}, newFakePlayer)

	if _, err := m.Join(context.Background(), voiceRequest("g1")); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if existed := m.Leave("g1"); !existed {
		t.Fatalf("Leave should report an existing session")
	}

	if err := m.Play("g1", "a.opus"); !errors.Is(err, ErrNoActiveConnection) {
		t.Fatalf("Play after Leave: error = %v, want ErrNoActiveConnection", err)
	}

	// Play must not have resurrected the removed session.
	m.mu.Lock()
	n := len(m.sessions)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("registry holds %d sessions after Leave+Play, want 0", n)
	}
}

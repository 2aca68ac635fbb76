// Package voice manages the bot's voice presence: at most one transport
// connection per guild, a reusable audio player on top of it, and guaranteed
// teardown on leave and shutdown.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// readyTimeout bounds the readiness handshake of a freshly dialed connection.
const readyTimeout = 15 * time.Second

// Validation errors surfaced to the command layer for user display.
var (
	ErrNotVoiceChannel    = errors.New("that channel is not a voice channel")
	ErrNoGuild            = errors.New("voice channels outside a guild are not supported")
	ErrMissingConnect     = errors.New("missing permission to connect to the voice channel")
	ErrMissingSpeak       = errors.New("missing permission to speak in the voice channel")
	ErrNoActiveConnection = errors.New("no active voice connection for this guild")
)

// ErrEncryptionUnsupported marks a handshake failure caused by a missing
// voice encryption dependency. Dialers wrap it so Join can point the operator
// at the fix instead of a bare transport error.
var ErrEncryptionUnsupported = errors.New("voice encryption support unavailable")

// ChannelKind classifies the target channel of a join request.
type ChannelKind int

const (
	KindUnknown ChannelKind = iota
	KindVoice
	KindStage
)

// Capabilities is the permission set the bot holds on the target channel,
// computed by the caller from the platform's permission representation.
type Capabilities struct {
	Connect bool
	Speak   bool
}

// JoinRequest carries everything Join needs, with the platform lookups
// (channel kind, member resolution, permissions) already performed.
type JoinRequest struct {
	GuildID   string
	ChannelID string
	Kind      ChannelKind
	Caps      Capabilities
}

// Connection is a transport-layer voice connection handle.
type Connection interface {
	// WaitReady blocks until the readiness handshake completes or ctx ends.
	WaitReady(ctx context.Context) error
	Destroyed() bool
	Destroy() error
}

// Dialer opens transport connections. The Discord glue provides the real one.
type Dialer interface {
	Dial(guildID, channelID string) (Connection, error)
}

// EventKind is the kind of a player event.
type EventKind int

const (
	// EventIdle means playback finished. No action is required.
	EventIdle EventKind = iota
	// EventError carries a playback error. Logged, never fatal.
	EventError
)

// Event is emitted by a Player during playback.
type Event struct {
	Kind EventKind
	Err  error
}

// Player streams local audio files into a connection. Events must be closed
// when the player is stopped for good.
type Player interface {
	Play(path string) error
	Stop() error
	Events() <-chan Event
}

// PlayerFunc creates a player subscribed to conn.
type PlayerFunc func(conn Connection) Player

// Session is the bot's voice presence in one guild: the connection it
// exclusively owns plus the player reused across playback requests.
type Session struct {
	GuildID string
	Conn    Connection
	player  Player
}

// Manager owns the per-guild session registry. Construct one per process and
// pass it to the command layer; there are no package-level globals.
type Manager struct {
	dialer    Dialer
	newPlayer PlayerFunc

	mu       sync.Mutex
	sessions map[string]*Session
	joining  map[string]chan struct{}
}

// NewManager creates a manager that dials through dialer and builds players
// with newPlayer.
func NewManager(dialer Dialer, newPlayer PlayerFunc) *Manager {
	return &Manager{
		dialer:    dialer,
		newPlayer: newPlayer,
		sessions:  make(map[string]*Session),
		joining:   make(map[string]chan struct{}),
	}
}

// Join connects the bot to a voice channel. A live session for the guild is
// reused as-is; otherwise a new connection is dialed and must become ready
// within 15 seconds or it is torn down and the join fails. Two concurrent
// joins for the same guild share one dial: the second waits for the first
// and then re-checks the registry.
func (m *Manager) Join(ctx context.Context, req JoinRequest) (Connection, error) {
	if req.Kind != KindVoice && req.Kind != KindStage {
		return nil, ErrNotVoiceChannel
	}
	if req.GuildID == "" {
		return nil, ErrNoGuild
	}
	if !req.Caps.Connect {
		return nil, ErrMissingConnect
	}
	if !req.Caps.Speak {
		return nil, ErrMissingSpeak
	}

	for {
		m.mu.Lock()
		if s, ok := m.sessions[req.GuildID]; ok && !s.Conn.Destroyed() {
			m.mu.Unlock()
			return s.Conn, nil
		}
		inflight, ok := m.joining[req.GuildID]
		if !ok {
			// Retire any stale session left by a dead connection before
			// dialing fresh, so its player goroutine does not linger.
			if stale, ok := m.sessions[req.GuildID]; ok {
				if stale.player != nil {
					if err := stale.player.Stop(); err != nil {
						log.Printf("[WARN] Failed to stop player of dead session in guild %s: %v", req.GuildID, err)
					}
				}
				delete(m.sessions, req.GuildID)
			}
			inflight = make(chan struct{})
			m.joining[req.GuildID] = inflight
			m.mu.Unlock()
			break
		}
		m.mu.Unlock()

		select {
		case <-inflight:
			// The other join settled; loop and re-check the registry.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	conn, err := m.connect(ctx, req)

	m.mu.Lock()
	if err == nil {
		s := &Session{GuildID: req.GuildID, Conn: conn, player: m.newPlayer(conn)}
		m.watchPlayer(req.GuildID, s.player)
		m.sessions[req.GuildID] = s
	}
	if inflight, ok := m.joining[req.GuildID]; ok {
		close(inflight)
		delete(m.joining, req.GuildID)
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return conn, nil
}

// connect dials and runs the bounded readiness handshake. On any failure the
// half-open connection is destroyed best-effort; a secondary destroy failure
// is logged, never propagated.
func (m *Manager) connect(ctx context.Context, req JoinRequest) (Connection, error) {
	conn, err := m.dialer.Dial(req.GuildID, req.ChannelID)
	if err != nil {
		return nil, describeJoinFailure(err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	if err := conn.WaitReady(waitCtx); err != nil {
		if dErr := conn.Destroy(); dErr != nil {
			log.Printf("[WARN] Failed to destroy half-open voice connection in guild %s: %v", req.GuildID, dErr)
		}
		return nil, describeJoinFailure(err)
	}
	return conn, nil
}

func describeJoinFailure(err error) error {
	if errors.Is(err, ErrEncryptionUnsupported) {
		return fmt.Errorf("could not establish the voice connection: %w — install the optional voice encryption dependency and restart the bot", err)
	}
	return fmt.Errorf("could not establish the voice connection: %w", err)
}

// watchPlayer drains player events: errors are logged, idle acknowledged.
// Called with m.mu held; the drain itself runs outside the lock.
func (m *Manager) watchPlayer(guildID string, p Player) {
	go func() {
		for evt := range p.Events() {
			switch evt.Kind {
			case EventError:
				log.Printf("[ERR] Voice player error in guild %s: %v", guildID, evt.Err)
			case EventIdle:
				// Playback finished.
			}
		}
	}()
}

// Play streams a local audio file into the guild's session. Only pre-encoded
// opus containers are accepted; anything else is rejected before the player
// is touched. The player is created lazily if the session lost it and reused
// across calls.
func (m *Manager) Play(guildID, path string) error {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok {
		m.mu.Unlock()
		return ErrNoActiveConnection
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".opus", ".ogg", ".oga":
	default:
		m.mu.Unlock()
		return fmt.Errorf("unsupported audio file %q: only opus files (.opus, .ogg, .oga) can be played", filepath.Base(path))
	}

	// Session lookup, validation and player creation form one critical
	// section: a Leave between them must not see a half-built player on a
	// session it already removed.
	if s.player == nil {
		s.player = m.newPlayer(s.Conn)
		m.watchPlayer(guildID, s.player)
	}
	p := s.player
	m.mu.Unlock()

	return p.Play(path)
}

// Leave stops playback and destroys the guild's connection. Stop and destroy
// failures are logged only; the registry entry is removed no matter what.
// Returns whether a session existed.
func (m *Manager) Leave(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[guildID]
	if !ok {
		return false
	}
	defer delete(m.sessions, guildID)

	if s.player != nil {
		if err := s.player.Stop(); err != nil {
			log.Printf("[WARN] Failed to stop player in guild %s: %v", guildID, err)
		}
	}
	if err := s.Conn.Destroy(); err != nil {
		log.Printf("[WARN] Failed to destroy voice connection in guild %s: %v", guildID, err)
	}
	return true
}

// IsActive reports whether the guild has a session with a live connection.
func (m *Manager) IsActive(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	return ok && !s.Conn.Destroyed()
}

// ActiveCount returns the number of live sessions, for the stats endpoint.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if !s.Conn.Destroyed() {
			n++
		}
	}
	return n
}

// DestroyAll tears down every session during shutdown. Each stop and destroy
// is best-effort and failures never abort the loop; the registry is cleared
// at the end.
func (m *Manager) DestroyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for guildID, s := range m.sessions {
		if s.player != nil {
			if err := s.player.Stop(); err != nil {
				log.Printf("[WARN] Failed to stop player in guild %s: %v", guildID, err)
			}
		}
		if err := s.Conn.Destroy(); err != nil {
			log.Printf("[WARN] Failed to destroy voice connection in guild %s: %v", guildID, err)
		}
	}
	m.sessions = make(map[string]*Session)
}

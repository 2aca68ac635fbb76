package discord

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/BaptisteLeDev/Moodioos/internal/voice"
	"github.com/bwmarrin/discordgo"
)

// opusPlayer streams pre-encoded opus packets from local ogg files into a
// guild voice connection. One player lives per voice session and is reused
// across playback requests; starting a new file stops the previous one.
type opusPlayer struct {
	vc     *discordgo.VoiceConnection
	events chan voice.Event

	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newOpusPlayer(vc *discordgo.VoiceConnection) *opusPlayer {
	return &opusPlayer{
		vc:     vc,
		events: make(chan voice.Event, 8),
	}
}

// Play opens path and starts streaming it. Any playback already in flight
// is stopped first.
func (p *opusPlayer) Play(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}

	p.mu.Lock()
	p.stopLocked()
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop, p.done = stop, done
	p.mu.Unlock()

	go p.stream(f, stop, done)
	return nil
}

// Stop halts playback and retires the player. The session manager only
// calls it at teardown, so the event channel is closed here.
func (p *opusPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closeOnce.Do(func() { close(p.events) })
	return nil
}

func (p *opusPlayer) Events() <-chan voice.Event {
	return p.events
}

// stopLocked signals the streaming goroutine and waits for it to drain.
// Callers must hold p.mu.
func (p *opusPlayer) stopLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}

func (p *opusPlayer) stream(f *os.File, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer f.Close()

	if err := p.vc.Speaking(true); err != nil {
		log.Println("[WARN] Failed to set speaking state:", err)
	}
	defer func() {
		if err := p.vc.Speaking(false); err != nil {
			log.Println("[WARN] Failed to clear speaking state:", err)
		}
	}()

	ogg := newOggReader(f)
	for {
		pkt, err := ogg.NextPacket()
		if err == io.EOF {
			p.emit(voice.Event{Kind: voice.EventIdle})
			return
		}
		if err != nil {
			p.emit(voice.Event{Kind: voice.EventError, Err: fmt.Errorf("demux %s: %w", f.Name(), err)})
			return
		}
		if isOpusHeaderPacket(pkt) {
			continue
		}

		select {
		case <-stop:
			return
		case p.vc.OpusSend <- pkt:
		}
	}
}

// emit delivers an event without ever blocking the send loop.
func (p *opusPlayer) emit(evt voice.Event) {
	select {
	case p.events <- evt:
	default:
	}
}

package discord

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaptisteLeDev/Moodioos/internal/voice"
	"github.com/bwmarrin/discordgo"
)

// gatewayDialer opens voice connections over the live gateway session. It is
// the production implementation of voice.Dialer.
type gatewayDialer struct {
	dg *discordgo.Session
}

func (d *gatewayDialer) Dial(guildID, channelID string) (voice.Connection, error) {
	// mute=false, deaf=true: the bot speaks but never listens.
	vc, err := d.dg.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, classifyVoiceErr(err)
	}
	return &gatewayConnection{vc: vc}, nil
}

// classifyVoiceErr maps transport failures onto the manager's sentinel
// errors where a more actionable message exists.
func classifyVoiceErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "encryption") || strings.Contains(msg, "secretbox") {
		return fmt.Errorf("%w: %v", voice.ErrEncryptionUnsupported, err)
	}
	return err
}

// gatewayConnection wraps a discordgo voice connection behind the
// voice.Connection interface.
type gatewayConnection struct {
	vc        *discordgo.VoiceConnection
	destroyed atomic.Bool
}

// WaitReady polls the handshake state until the connection is usable or ctx
// expires. ChannelVoiceJoin blocks for most of the handshake already, so the
// usual case returns on the first check.
func (c *gatewayConnection) WaitReady(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		c.vc.RLock()
		ready := c.vc.Ready
		c.vc.RUnlock()
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *gatewayConnection) Destroyed() bool {
	return c.destroyed.Load()
}

// Destroy leaves the channel and marks the connection dead. Safe to call
// more than once.
func (c *gatewayConnection) Destroy() error {
	if c.destroyed.Swap(true) {
		return nil
	}
	return c.vc.Disconnect()
}

package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Messenger delivers direct messages for the schedule worker.
type Messenger struct {
	dg *discordgo.Session
}

// SendDirect opens (or reuses) a DM channel with userID and sends content.
func (m *Messenger) SendDirect(ctx context.Context, userID, content string) error {
	ch, err := m.dg.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open DM channel with %s: %w", userID, err)
	}
	if _, err := m.dg.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send DM to %s: %w", userID, err)
	}
	return nil
}

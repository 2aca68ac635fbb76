package middleware

import (
	"log"
	"time"

	"github.com/BaptisteLeDev/Moodioos/internal/command"
	"github.com/BaptisteLeDev/Moodioos/internal/storage"
)

// WithCommandLogger appends each slash invocation to the guild's command
// history after running it. Logging failures never fail the command.
func WithCommandLogger() Middleware {
	return func(c command.Command) command.Command {
		return &wrappedCommand{Command: c, wrap: func(ctx interface{}) error {
			err := c.Run(ctx)

			if v, ok := ctx.(*command.SlashInteractionContext); ok && v.Storage != nil && v.Event.GuildID != "" {
				userID, username := "", ""
				if v.Event.Member != nil && v.Event.Member.User != nil {
					userID = v.Event.Member.User.ID
					username = v.Event.Member.User.Username
				}
				rec := storage.CommandHistoryRecord{
					ChannelID: v.Event.ChannelID,
					UserID:    userID,
					Username:  username,
					Command:   c.Name(),
					Datetime:  time.Now(),
				}
				if logErr := v.Storage.AppendCommandToHistory(v.Event.GuildID, rec); logErr != nil {
					log.Printf("[WARN] Failed to log command /%s: %v", c.Name(), logErr)
				}
			}
			return err
		}}
	}
}

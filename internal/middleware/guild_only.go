package middleware

import (
	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	"github.com/BaptisteLeDev/Moodioos/internal/command"
)

// WithGuildOnly rejects invocations from outside a guild (DM sessions have
// no voice channels, locale or history to act on).
func WithGuildOnly() Middleware {
	return func(c command.Command) command.Command {
		return &wrappedCommand{Command: c, wrap: func(ctx interface{}) error {
			if v, ok := ctx.(*command.SlashInteractionContext); ok {
				if v.Event.GuildID == "" {
					return bot.RespondEphemeral(v.Session, v.Event, "This command only works inside a server.")
				}
			}
			return c.Run(ctx)
		}}
	}
}

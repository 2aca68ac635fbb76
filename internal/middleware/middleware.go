// Package middleware wraps commands with cross-cutting behavior (guild
// gating, history logging) without the commands knowing about it.
package middleware

import (
	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/command"
)

type Middleware func(command.Command) command.Command

// wrappedCommand delegates identity to the inner command and intercepts Run.
// SlashDefinition is forwarded so registration still sees the definition
// through any number of wrappers.
type wrappedCommand struct {
	command.Command
	wrap func(ctx interface{}) error
}

func (w *wrappedCommand) Run(ctx interface{}) error {
	if w.wrap != nil {
		return w.wrap(ctx)
	}
	return w.Command.Run(ctx)
}

func (w *wrappedCommand) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := w.Command.(command.SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

// Apply wraps cmd with the given middlewares; the first listed ends up
// outermost.
func Apply(cmd command.Command, mws ...Middleware) command.Command {
	for i := len(mws) - 1; i >= 0; i-- {
		cmd = mws[i](cmd)
	}
	return cmd
}

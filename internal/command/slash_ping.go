package command

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
)

type PingCommand struct{}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check that the bot is alive" }
func (c *PingCommand) Category() string    { return "🕯️ Information" }

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *PingCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}
	latency := context.Session.HeartbeatLatency()
	return bot.RespondEphemeral(context.Session, context.Event, fmt.Sprintf("Pong! Gateway latency: %dms", latency.Milliseconds()))
}

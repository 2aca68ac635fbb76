package command

import (
	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	v "github.com/BaptisteLeDev/Moodioos/internal/version"
)

type AboutCommand struct{}

func (c *AboutCommand) Name() string        { return "about" }
func (c *AboutCommand) Description() string { return "What this bot is and does" }
func (c *AboutCommand) Category() string    { return "🕯️ Information" }

func (c *AboutCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *AboutCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}
	return bot.RespondEmbedEphemeral(context.Session, context.Event, &discordgo.MessageEmbed{
		Title:       v.AppName,
		Description: v.Description,
		Footer:      &discordgo.MessageEmbedFooter{Text: "version " + v.Version},
	})
}

package command

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	"github.com/BaptisteLeDev/Moodioos/internal/content"
)

type ComplimentCommand struct{}

func (c *ComplimentCommand) Name() string        { return "compliment" }
func (c *ComplimentCommand) Description() string { return "Send someone (or yourself) a compliment" }
func (c *ComplimentCommand) Category() string    { return "💝 Fun" }

func (c *ComplimentCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "who",
				Description: "Who deserves it (defaults to you)",
			},
		},
	}
}

func (c *ComplimentCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event

	target := ""
	for _, opt := range e.ApplicationCommandData().Options {
		if opt.Name == "who" {
			target = opt.UserValue(s).Mention()
		}
	}
	if target == "" {
		if e.Member != nil && e.Member.User != nil {
			target = e.Member.User.Mention()
		} else if e.User != nil {
			target = e.User.Mention()
		}
	}

	return bot.RespondEmbed(s, e, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("%s — %s", target, content.Compliment()),
	})
}

package command

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	"github.com/BaptisteLeDev/Moodioos/internal/content"
)

type LocaleCommand struct{}

func (c *LocaleCommand) Name() string        { return "locale" }
func (c *LocaleCommand) Description() string { return "Set the language of my replies in this server" }
func (c *LocaleCommand) Category() string    { return "📢 Utilities" }

func (c *LocaleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(content.Locales()))
	for _, locale := range content.Locales() {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: locale, Value: locale})
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "language",
				Description: "Reply language",
				Required:    true,
				Choices:     choices,
			},
		},
	}
}

func (c *LocaleCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event

	locale := ""
	for _, opt := range e.ApplicationCommandData().Options {
		if opt.Name == "language" {
			locale = strings.ToLower(opt.StringValue())
		}
	}
	if !slices.Contains(content.Locales(), locale) {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("Unknown locale %q. I speak: %s", locale, strings.Join(content.Locales(), ", ")))
	}

	if err := context.Storage.SetLocale(e.GuildID, locale); err != nil {
		return err
	}
	return bot.RespondEphemeral(s, e, fmt.Sprintf("Replies in this server are now in %q.", locale))
}

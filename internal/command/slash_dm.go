package command

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	"github.com/BaptisteLeDev/Moodioos/internal/content"
)

type DMCommand struct{}

func (c *DMCommand) Name() string        { return "dm" }
func (c *DMCommand) Description() string { return "Send a direct message to a user right now" }
func (c *DMCommand) Category() string    { return "📨 Messaging" }

func (c *DMCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "Recipient",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "What to send",
				Required:    true,
			},
		},
	}
}

func (c *DMCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}
	s, e := context.Session, context.Event
	locale := context.Storage.GetLocale(e.GuildID)

	var userID, message string
	for _, opt := range e.ApplicationCommandData().Options {
		switch opt.Name {
		case "user":
			userID = opt.UserValue(nil).ID
		case "message":
			message = opt.StringValue()
		}
	}

	channel, err := s.UserChannelCreate(userID)
	if err == nil {
		_, err = s.ChannelMessageSend(channel.ID, message)
	}
	if err != nil {
		log.Printf("[WARN] Failed to DM user %s: %v", userID, err)
		return bot.RespondEphemeral(s, e, content.T(locale, "dm.failed"))
	}

	return bot.RespondEphemeral(s, e, content.T(locale, "dm.sent"))
}

package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	"github.com/BaptisteLeDev/Moodioos/internal/content"
	"github.com/BaptisteLeDev/Moodioos/internal/schedule"
)

type RemindCommand struct{}

func (c *RemindCommand) Name() string        { return "remind" }
func (c *RemindCommand) Description() string { return "Schedule a direct message for later" }
func (c *RemindCommand) Category() string    { return "📨 Messaging" }

func (c *RemindCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Schedule a message",
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
						Description: "What to deliver",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "when",
						Description: "Delay like 10m, 2h30m, or an RFC3339 timestamp",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show messages still waiting to be delivered",
			},
		},
	}
}

func (c *RemindCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}
	if len(context.Event.ApplicationCommandData().Options) == 0 {
		return bot.RespondEphemeral(context.Session, context.Event, "Missing subcommand.")
	}

	sub := context.Event.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "add":
		return c.runAdd(context, sub)
	case "list":
		return c.runList(context)
	default:
		return bot.RespondEphemeral(context.Session, context.Event, fmt.Sprintf("Unknown subcommand: %s", sub.Name))
	}
}

func (c *RemindCommand) runAdd(context *SlashInteractionContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	s, e := context.Session, context.Event
	locale := context.Storage.GetLocale(e.GuildID)

	var userID, message, when string
	for _, opt := range sub.Options {
		switch opt.Name {
		case "user":
			userID = opt.UserValue(nil).ID
		case "message":
			message = opt.StringValue()
		case "when":
			when = opt.StringValue()
		}
	}

	// The store records whatever timestamp it is given; validating that the
	// input parses to a real one is this layer's job.
	sendAt, err := parseWhen(when)
	if err != nil {
		return bot.RespondEphemeral(s, e, fmt.Sprintf("I can't read %q as a time: use a delay like `45m` or an RFC3339 timestamp.", when))
	}

	creatorID := ""
	if e.Member != nil && e.Member.User != nil {
		creatorID = e.Member.User.ID
	} else if e.User != nil {
		creatorID = e.User.ID
	}

	msg, err := context.Sched.Schedule(userID, message, sendAt, creatorID)
	if err != nil {
		return err
	}

	return bot.RespondEphemeral(s, e, fmt.Sprintf("%s (delivery at %s, id `%s`)",
		content.T(locale, "remind.queued"), msg.SendAt.Format(time.RFC3339), msg.ID))
}

func (c *RemindCommand) runList(context *SlashInteractionContext) error {
	s, e := context.Session, context.Event
	locale := context.Storage.GetLocale(e.GuildID)

	var pending []schedule.Message
	for _, msg := range context.Sched.All() {
		if msg.Status == schedule.StatusPending {
			pending = append(pending, msg)
		}
	}
	if len(pending) == 0 {
		return bot.RespondEphemeral(s, e, content.T(locale, "remind.none"))
	}

	var b strings.Builder
	for _, msg := range pending {
		fmt.Fprintf(&b, "`%s` → <@%s> at %s\n", msg.ID, msg.TargetUserID, msg.SendAt.Format(time.RFC3339))
	}
	return bot.RespondEmbedEphemeral(s, e, &discordgo.MessageEmbed{
		Title:       "Scheduled messages",
		Description: b.String(),
	})
}

// parseWhen accepts either a duration offset from now or an absolute RFC3339
// timestamp.
func parseWhen(input string) (time.Time, error) {
	if d, err := time.ParseDuration(input); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("delay must be positive")
		}
		return time.Now().Add(d), nil
	}
	return time.Parse(time.RFC3339, input)
}

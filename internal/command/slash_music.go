package command

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	"github.com/BaptisteLeDev/Moodioos/internal/content"
)

type MusicCommand struct{}

func (c *MusicCommand) Name() string        { return "music" }
func (c *MusicCommand) Description() string { return "Join voice, play a local clip, leave" }
func (c *MusicCommand) Category() string    { return "🎵 Music" }

func (c *MusicCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "join",
				Description: "Join your current voice channel",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "play",
				Description: "Play an opus clip from disk",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "file",
						Description: "Path to a .opus/.ogg/.oga file",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "leave",
				Description: "Leave the voice channel",
			},
		},
	}
}

func (c *MusicCommand) Run(ctx interface{}) error {
	cmdCtx, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}
	if len(cmdCtx.Event.ApplicationCommandData().Options) == 0 {
		return bot.RespondEphemeral(cmdCtx.Session, cmdCtx.Event, "Missing subcommand.")
	}

	sub := cmdCtx.Event.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "join":
		return c.runJoin(cmdCtx)
	case "play":
		return c.runPlay(cmdCtx, sub)
	case "leave":
		return c.runLeave(cmdCtx)
	default:
		return bot.RespondEphemeral(cmdCtx.Session, cmdCtx.Event, fmt.Sprintf("Unknown subcommand: %s", sub.Name))
	}
}

// runJoin defers its response first: the readiness handshake can outlive the
// interaction acknowledgment deadline.
func (c *MusicCommand) runJoin(cmdCtx *SlashInteractionContext) error {
	s, e := cmdCtx.Session, cmdCtx.Event
	locale := cmdCtx.Storage.GetLocale(e.GuildID)

	userID := ""
	if e.Member != nil && e.Member.User != nil {
		userID = e.Member.User.ID
	}
	channelID := bot.FindUserVoiceChannel(s, e.GuildID, userID)
	if channelID == "" {
		return bot.RespondEphemeral(s, e, "Join a voice channel first, then call me.")
	}

	if err := bot.RespondDeferredEphemeral(s, e); err != nil {
		return err
	}

	req, err := bot.VoiceJoinRequest(s, channelID)
	if err != nil {
		return bot.FollowupEphemeral(s, e, err.Error())
	}
	if _, err := cmdCtx.Voice.Join(context.Background(), req); err != nil {
		log.Printf("[WARN] Voice join failed in guild %s: %v", e.GuildID, err)
		return bot.FollowupEphemeral(s, e, err.Error())
	}
	return bot.FollowupEphemeral(s, e, content.T(locale, "voice.joined"))
}

func (c *MusicCommand) runPlay(cmdCtx *SlashInteractionContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	s, e := cmdCtx.Session, cmdCtx.Event
	locale := cmdCtx.Storage.GetLocale(e.GuildID)

	file := ""
	for _, opt := range sub.Options {
		if opt.Name == "file" {
			file = opt.StringValue()
		}
	}

	if err := bot.RespondDeferredEphemeral(s, e); err != nil {
		return err
	}
	if err := cmdCtx.Voice.Play(e.GuildID, file); err != nil {
		return bot.FollowupEphemeral(s, e, err.Error())
	}
	return bot.FollowupEphemeral(s, e, content.T(locale, "voice.playing"))
}

func (c *MusicCommand) runLeave(cmdCtx *SlashInteractionContext) error {
	s, e := cmdCtx.Session, cmdCtx.Event
	locale := cmdCtx.Storage.GetLocale(e.GuildID)

	if existed := cmdCtx.Voice.Leave(e.GuildID); !existed {
		return bot.RespondEphemeral(s, e, content.T(locale, "voice.absent"))
	}
	return bot.RespondEphemeral(s, e, content.T(locale, "voice.left"))
}

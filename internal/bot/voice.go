package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/voice"
)

// VoiceJoinRequest resolves a channel into the explicit join request the
// voice manager consumes: channel kind plus the bot's own connect/speak
// capabilities on it. Resolution failures are reported to the caller; the
// manager itself never sees platform permission objects.
func VoiceJoinRequest(s *discordgo.Session, channelID string) (voice.JoinRequest, error) {
	ch, err := s.State.Channel(channelID)
	if err != nil || ch == nil {
		ch, err = s.Channel(channelID)
		if err != nil {
			return voice.JoinRequest{}, fmt.Errorf("could not resolve channel %s: %w", channelID, err)
		}
	}

	req := voice.JoinRequest{
		GuildID:   ch.GuildID,
		ChannelID: ch.ID,
	}
	switch ch.Type {
	case discordgo.ChannelTypeGuildVoice:
		req.Kind = voice.KindVoice
	case discordgo.ChannelTypeGuildStageVoice:
		req.Kind = voice.KindStage
	default:
		req.Kind = voice.KindUnknown
	}

	if ch.GuildID != "" {
		if _, err := s.State.Member(ch.GuildID, s.State.User.ID); err != nil {
			if _, err := s.GuildMember(ch.GuildID, s.State.User.ID); err != nil {
				return voice.JoinRequest{}, fmt.Errorf("could not resolve my own membership in guild %s: %w", ch.GuildID, err)
			}
		}
	}

	perms, err := s.UserChannelPermissions(s.State.User.ID, ch.ID)
	if err != nil {
		return voice.JoinRequest{}, fmt.Errorf("could not resolve channel permissions: %w", err)
	}
	req.Caps = voice.Capabilities{
		Connect: perms&discordgo.PermissionVoiceConnect != 0,
		Speak:   perms&discordgo.PermissionVoiceSpeak != 0,
	}
	return req, nil
}

// FindUserVoiceChannel returns the voice channel a user currently occupies
// in a guild, or an empty string.
func FindUserVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil || guild == nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

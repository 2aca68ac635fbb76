package discord

import (
	"context"
	"fmt"
	"log"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
	"github.com/BaptisteLeDev/Moodioos/internal/command"
	"github.com/BaptisteLeDev/Moodioos/internal/config"
	"github.com/BaptisteLeDev/Moodioos/internal/schedule"
	"github.com/BaptisteLeDev/Moodioos/internal/storage"
	"github.com/BaptisteLeDev/Moodioos/internal/voice"
	"github.com/BaptisteLeDev/Moodioos/pkg/retrylimit"
	"github.com/bwmarrin/discordgo"
)

// Bot is the Discord front end. It owns the gateway session and the voice
// manager built on top of it; storage and the schedule store come from the
// caller.
type Bot struct {
	dg      *discordgo.Session
	cfg     *config.Config
	storage *storage.Storage
	sched   *schedule.Store
	voice   *voice.Manager

	regLimiter *retrylimit.AdaptiveLimiter
}

// New creates the session and wires the voice manager over it. The gateway
// is not opened until Run.
func New(cfg *config.Config, st *storage.Storage, sched *schedule.Store) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		dg:         dg,
		cfg:        cfg,
		storage:    st,
		sched:      sched,
		regLimiter: retrylimit.NewAdaptiveLimiter(20, 1, 40, 2, 0.5),
	}
	b.voice = voice.NewManager(&gatewayDialer{dg: dg}, func(conn voice.Connection) voice.Player {
		return newOpusPlayer(conn.(*gatewayConnection).vc)
	})
	return b, nil
}

// Voice exposes the session manager for status reporting and shutdown.
func (b *Bot) Voice() *voice.Manager { return b.voice }

// Messenger returns the DM delivery used by the schedule worker.
func (b *Bot) Messenger() *Messenger { return &Messenger{dg: b.dg} }

// GuildCount returns the number of guilds in the session state.
func (b *Bot) GuildCount() int {
	b.dg.State.RLock()
	defer b.dg.State.RUnlock()
	return len(b.dg.State.Guilds)
}

// Run opens the gateway and blocks until ctx is canceled. Voice sessions are
// torn down before the gateway closes.
func (b *Bot) Run(ctx context.Context) error {
	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")
	b.voice.DestroyAll()
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages
}

// onReady is called when the gateway handshake completes
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	botInfo, err := s.User("@me")
	if err != nil {
		log.Println("[WARN] Error retrieving bot user:", err)
		return
	}

	if b.cfg.InitSlashCommands {
		for _, g := range r.Guilds {
			if err := b.registerCommands(g.ID); err != nil {
				log.Println("[ERR] Error registering slash commands for guild", g.ID, ":", err)
			}
		}
	} else {
		log.Println("[INFO] Registering slash commands skipped")
	}

	log.Printf("[INFO] ✅ Discord bot %v is running.", botInfo.Username)
}

// onGuildCreate is called when the bot joins a guild
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("[INFO] Bot added to guild: %s (%s)", g.Guild.ID, g.Guild.Name)
	if err := b.registerCommands(g.Guild.ID); err != nil {
		log.Printf("[ERR] Failed to register commands for new guild %s: %v", g.Guild.ID, err)
	}
}

// onInteractionCreate dispatches slash interactions to the command registry
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	cmdName := i.ApplicationCommandData().Name
	cmd, ok := command.Get(cmdName)
	if !ok {
		log.Printf("[WARN] Unknown command: %s\n", cmdName)
		return
	}

	ctx := &command.SlashInteractionContext{
		Session: s,
		Event:   i,
		Storage: b.storage,
		Sched:   b.sched,
		Voice:   b.voice,
	}
	if err := cmd.Run(ctx); err != nil {
		log.Println("[ERR] Error running slash command:", err)
		bot.RespondEmbedEphemeral(s, i, &discordgo.MessageEmbed{
			Description: fmt.Sprintf("Error running slash command: %v", err),
		})
	}
}

// registerCommands reconciles the guild's slash commands with the registry.
// Unchanged commands (per the hash cache) are left alone, obsolete ones are
// deleted and new or changed ones are created.
func (b *Bot) registerCommands(guildID string) error {
	appID := b.dg.State.User.ID
	if appID == "" {
		user, err := b.dg.User("@me")
		if err != nil {
			return err
		}
		appID = user.ID
	}

	existing, _ := b.dg.ApplicationCommands(appID, guildID)
	localHashes := loadGuildCommandHashes(guildID)

	var wanted []*discordgo.ApplicationCommand
	wantedHashes := make(map[string]string)
	for _, cmd := range command.All() {
		if def := normalizeDefinition(cmd); def != nil {
			wanted = append(wanted, def)
			wantedHashes[def.Name] = hashCommand(def)
		}
	}

	// Delete obsolete
	for _, old := range existing {
		if _, ok := wantedHashes[old.Name]; !ok {
			log.Printf("[INFO] [%s] Deleting obsolete command: %s", guildID, old.Name)
			if err := b.dg.ApplicationCommandDelete(appID, guildID, old.ID); err != nil {
				log.Printf("[ERR] [%s] Failed to delete %s: %v", guildID, old.Name, err)
			}
			delete(localHashes, old.Name)
		}
	}

	// Create or update changed commands
	var changed []*discordgo.ApplicationCommand
	for _, cmd := range wanted {
		if localHashes[cmd.Name] != wantedHashes[cmd.Name] {
			changed = append(changed, cmd)
		}
	}

	if len(changed) > 0 {
		log.Printf("[INFO] [%s] %d commands changed — updating with rate limit...", guildID, len(changed))
		b.createCommandsWithRetry(guildID, appID, changed)
		for _, c := range changed {
			localHashes[c.Name] = wantedHashes[c.Name]
		}
	}

	saveGuildCommandHashes(guildID, localHashes)
	return nil
}

// createCommandsWithRetry pushes command definitions through the adaptive
// limiter so bulk registration across many guilds stays under the API rate.
func (b *Bot) createCommandsWithRetry(guildID, appID string, cmds []*discordgo.ApplicationCommand) {
	ctx := context.Background()
	for _, def := range cmds {
		err := retrylimit.WithRetryMax(ctx, func() error {
			_, err := b.dg.ApplicationCommandCreate(appID, guildID, def)
			return err
		}, b.regLimiter, 5)
		if err != nil {
			log.Printf("[ERR] Can't create command %s: %v", def.Name, err)
		} else {
			log.Printf("[DONE] Command created: %s", def.Name)
		}
	}
}

// normalizeDefinition fills in the default command type
func normalizeDefinition(cmd command.Command) *discordgo.ApplicationCommand {
	slash, ok := cmd.(command.SlashProvider)
	if !ok {
		return nil
	}
	def := slash.SlashDefinition()
	if def == nil {
		return nil
	}
	if def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}

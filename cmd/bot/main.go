package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/BaptisteLeDev/Moodioos/internal/command"
	"github.com/BaptisteLeDev/Moodioos/internal/config"
	"github.com/BaptisteLeDev/Moodioos/internal/discord"
	"github.com/BaptisteLeDev/Moodioos/internal/middleware"
	"github.com/BaptisteLeDev/Moodioos/internal/schedule"
	"github.com/BaptisteLeDev/Moodioos/internal/status"
	"github.com/BaptisteLeDev/Moodioos/internal/storage"
	v "github.com/BaptisteLeDev/Moodioos/internal/version"
)

func main() {
	log.Printf("[INFO] Starting %v bot...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	sched := schedule.NewStore(cfg.SchedulePath)

	bot, err := discord.New(cfg, store, sched)
	if err != nil {
		log.Fatal(err)
	}

	registerCommands()

	worker := schedule.NewWorker(sched, bot.Messenger())
	worker.Start()
	defer worker.Stop()

	go func() {
		src := status.Sources{
			Sched:      sched,
			Voice:      bot.Voice(),
			Storage:    store,
			GuildCount: bot.GuildCount,
		}
		if err := status.Start(ctx, cfg.StatusAddr, src); err != nil {
			log.Println("[ERR] Status server error:", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	// Wait for the gateway to finish voice teardown before exiting.
	<-errCh

	log.Println("[INFO] Discord bot exited cleanly")
}

// registerCommands plugs every command into the registry behind the shared
// middleware chain.
func registerCommands() {
	cmds := []command.Command{
		&command.PingCommand{},
		&command.AboutCommand{},
		&command.HelpCommand{},
		&command.ComplimentCommand{},
		&command.DMCommand{},
		&command.RemindCommand{},
		&command.MusicCommand{},
		&command.LocaleCommand{},
	}
	for _, cmd := range cmds {
		command.Register(middleware.Apply(cmd,
			middleware.WithGuildOnly(),
			middleware.WithCommandLogger(),
		))
	}
}

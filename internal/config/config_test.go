package config

import "testing"

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if cfg.DiscordToken != "test-token" {
		t.Errorf("DiscordToken = %q, want %q", cfg.DiscordToken, "test-token")
	}
	if cfg.SchedulePath != "data/scheduled.json" {
		t.Errorf("SchedulePath = %q, want default", cfg.SchedulePath)
	}
	if cfg.StoragePath != "data/guilds.json" {
		t.Errorf("StoragePath = %q, want default", cfg.StoragePath)
	}
	if cfg.StatusAddr != ":8787" {
		t.Errorf("StatusAddr = %q, want default", cfg.StatusAddr)
	}
	if !cfg.InitSlashCommands {
		t.Errorf("InitSlashCommands should default to true")
	}
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "t")
	t.Setenv("SCHEDULE_PATH", "/tmp/sched.json")
	t.Setenv("INIT_SLASH_COMMANDS", "false")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if cfg.SchedulePath != "/tmp/sched.json" {
		t.Errorf("SchedulePath = %q, want override", cfg.SchedulePath)
	}
	if cfg.InitSlashCommands {
		t.Errorf("InitSlashCommands should honor the override")
	}
}

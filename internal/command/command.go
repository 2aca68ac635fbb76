// Package command defines the slash-command contract and the registry the
// Discord dispatcher resolves handlers from.
package command

import (
	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/schedule"
	"github.com/BaptisteLeDev/Moodioos/internal/storage"
	"github.com/BaptisteLeDev/Moodioos/internal/voice"
)

// Command is the contract every handler implements. Run receives one of the
// context types below depending on how the command was invoked.
type Command interface {
	Name() string
	Description() string
	Category() string
	Run(ctx interface{}) error
}

// SlashProvider is implemented by commands that register a slash definition.
type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// SlashInteractionContext is passed to Run for slash invocations.
type SlashInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage
	Sched   *schedule.Store
	Voice   *voice.Manager
}

var registry = map[string]Command{}

// Register adds a command to the registry. Usually called from main during
// setup, after middleware has been applied.
func Register(cmd Command) {
	registry[cmd.Name()] = cmd
}

// Get returns the command with the given name.
func Get(name string) (Command, bool) {
	cmd, ok := registry[name]
	return cmd, ok
}

// All returns every registered command.
func All() []Command {
	list := make([]Command, 0, len(registry))
	for _, cmd := range registry {
		list = append(list, cmd)
	}
	return list
}

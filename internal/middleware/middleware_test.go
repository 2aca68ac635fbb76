package middleware

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/command"
)

type stubCommand struct {
	runs int
}

func (c *stubCommand) Name() string        { return "stub" }
func (c *stubCommand) Description() string { return "stub" }
func (c *stubCommand) Category() string    { return "stub" }
func (c *stubCommand) Run(ctx interface{}) error {
	c.runs++
	return nil
}

func (c *stubCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func record(order *[]string, name string) Middleware {
	return func(c command.Command) command.Command {
		return &wrappedCommand{Command: c, wrap: func(ctx interface{}) error {
			*order = append(*order, name)
			return c.Run(ctx)
		}}
	}
}

func TestApply_FirstListedIsOutermost(t *testing.T) {
	var order []string
	cmd := &stubCommand{}

	wrapped := Apply(cmd, record(&order, "outer"), record(&order, "inner"))
	if err := wrapped.Run(nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("middleware order = %v, want [outer inner]", order)
	}
	if cmd.runs != 1 {
		t.Fatalf("inner command ran %d times, want 1", cmd.runs)
	}
}

func TestApply_ForwardsSlashDefinition(t *testing.T) {
	var order []string
	wrapped := Apply(&stubCommand{}, record(&order, "a"), record(&order, "b"))

	sp, ok := wrapped.(command.SlashProvider)
	if !ok {
		t.Fatal("wrapped command lost its SlashProvider implementation")
	}
	def := sp.SlashDefinition()
	if def == nil || def.Name != "stub" {
		t.Fatalf("SlashDefinition = %v, want the inner command's definition", def)
	}
}

func TestApply_NoMiddlewareReturnsCommand(t *testing.T) {
	cmd := &stubCommand{}
	if got := Apply(cmd); got != command.Command(cmd) {
		t.Fatal("Apply without middleware should return the command unchanged")
	}
}

package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/BaptisteLeDev/Moodioos/internal/bot"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List every available command" }
func (c *HelpCommand) Category() string    { return "🕯️ Information" }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *HelpCommand) Run(ctx interface{}) error {
	context, ok := ctx.(*SlashInteractionContext)
	if !ok {
		return nil
	}

	byCategory := map[string][]Command{}
	for _, cmd := range All() {
		byCategory[cmd.Category()] = append(byCategory[cmd.Category()], cmd)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, cat := range categories {
		cmds := byCategory[cat]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
		b.WriteString("**" + cat + "**\n")
		for _, cmd := range cmds {
			fmt.Fprintf(&b, "`/%s` — %s\n", cmd.Name(), cmd.Description())
		}
		b.WriteString("\n")
	}

	return bot.RespondEmbedEphemeral(context.Session, context.Event, &discordgo.MessageEmbed{
		Title:       "Commands",
		Description: b.String(),
	})
}

package discord

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// Registered command definitions are hashed per guild so restarts only talk
// to the API for commands that actually changed.

func guildCachePath(guildID string) string {
	return filepath.Join("data", "commands", guildID+".json")
}

func loadGuildCommandHashes(guildID string) map[string]string {
	hashes := make(map[string]string)
	raw, err := os.ReadFile(guildCachePath(guildID))
	if err == nil {
		_ = json.Unmarshal(raw, &hashes)
	}
	return hashes
}

func saveGuildCommandHashes(guildID string, hashes map[string]string) {
	path := guildCachePath(guildID)
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	raw, _ := json.MarshalIndent(hashes, "", "  ")
	_ = os.WriteFile(path, raw, 0o644)
}

// hashCommand produces a deterministic digest of a command definition,
// ignoring runtime-only fields like IDs and versions.
func hashCommand(def *discordgo.ApplicationCommand) string {
	raw, _ := json.Marshal(normalizeForHash(def))
	return fmt.Sprintf("%x", sha1.Sum(raw))
}

func normalizeForHash(def *discordgo.ApplicationCommand) map[string]interface{} {
	obj := map[string]interface{}{
		"name":        def.Name,
		"description": def.Description,
		"type":        def.Type,
	}
	if len(def.Options) > 0 {
		obj["options"] = normalizeOptions(def.Options)
	}
	return obj
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]interface{} {
	normalized := make([]map[string]interface{}, len(opts))
	for i, o := range opts {
		entry := map[string]interface{}{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]interface{}, len(o.Choices))
			for j, c := range o.Choices {
				choices[j] = map[string]interface{}{
					"name":  c.Name,
					"value": c.Value,
				}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		normalized[i] = entry
	}

	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i]["name"].(string) < normalized[j]["name"].(string)
	})
	return normalized
}

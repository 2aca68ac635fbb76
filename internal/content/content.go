// Package content serves the bot's static reply material: the compliments
// pool and the small translation table used for canned replies.
package content

import "math/rand"

var compliments = []string{
	"You light up every channel you type in.",
	"Your playlists are criminally underrated.",
	"You ask the questions everyone else is afraid to.",
	"Servers are just better with you online.",
	"You have impeccable emoji timing.",
	"Your patience in voice chat is legendary.",
	"You make even the changelog channel fun to read.",
	"Ten out of ten, would queue with you again.",
	"You give the best movie recommendations.",
	"Somehow your memes always land.",
}

// Compliment returns a random compliment from the pool.
func Compliment() string {
	return compliments[rand.Intn(len(compliments))]
}

// translations holds canned replies by locale and key. English is the
// fallback for any missing locale or key.
var translations = map[string]map[string]string{
	"en": {
		"dm.sent":       "Direct message delivered.",
		"dm.failed":     "Sorry, I couldn't deliver that message.",
		"remind.queued": "Got it. I'll deliver that message when the time comes.",
		"remind.none":   "Nothing is scheduled right now.",
		"voice.joined":  "Joined the voice channel.",
		"voice.left":    "Left the voice channel.",
		"voice.absent":  "I'm not in a voice channel here.",
		"voice.playing": "Playing your clip.",
		"error":         "Sorry, something went wrong.",
	},
	"fr": {
		"dm.sent":       "Message privé envoyé.",
		"dm.failed":     "Désolé, je n'ai pas pu envoyer ce message.",
		"remind.queued": "C'est noté. Je déposerai ce message le moment venu.",
		"remind.none":   "Rien n'est planifié pour le moment.",
		"voice.joined":  "J'ai rejoint le salon vocal.",
		"voice.left":    "J'ai quitté le salon vocal.",
		"voice.absent":  "Je ne suis pas dans un salon vocal ici.",
		"voice.playing": "Lecture du clip en cours.",
		"error":         "Désolé, quelque chose s'est mal passé.",
	},
}

// T looks up the canned reply for a key in the given locale, falling back to
// English, then to the key itself so a missing entry is still visible.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := translations["en"][key]; ok {
		return s
	}
	return key
}

// Locales lists the locales the translation table knows about.
func Locales() []string {
	return []string{"en", "fr"}
}

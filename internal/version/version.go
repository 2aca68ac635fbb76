// Package version holds build identity shown by the about command and the
// status endpoint.
package version

var (
	AppName     = "Moodioos"
	Version     = "dev"
	Description = "A small Discord companion bot: compliments, deferred DMs and voice clips."
)

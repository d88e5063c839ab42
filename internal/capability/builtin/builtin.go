// Package builtin provides the capabilities that ship with the agent.
// They cover the everyday requests (math, time, weather, web lookups)
// so the synthesis pipeline only runs for genuinely novel needs.
package builtin

import (
	"net/http"
	"time"

	"persona/internal/capability"
	"persona/internal/logging"
)

// httpClient is shared by the network-backed capabilities. Lookups that
// hang should fail the turn quickly rather than stall the agent.
var httpClient = &http.Client{Timeout: 10 * time.Second}

// All returns one instance of every built-in capability.
func All() []capability.Capability {
	return []capability.Capability{
		NewCalculateMath(),
		NewCurrentTime(),
		NewWeather(),
		NewWikipediaSearch(),
		NewOpenWebsite(),
		NewRecallFirstMessage(),
	}
}

// RegisterAll installs every built-in capability into the registry.
func RegisterAll(reg *capability.Registry) {
	for _, c := range All() {
		reg.Register(c, capability.OriginBuiltin)
	}
	logging.Capability("registered %d built-in capabilities", len(All()))
}

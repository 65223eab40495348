package handlers

import (
	"net/http"
)

// Health reports liveness and which optional features are wired.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	var providers []string
	if a.Orchestrator != nil {
		if d := a.Orchestrator.Direct(); d != nil {
			providers = append(providers, d.Name())
		}
		providers = append(providers, a.Orchestrator.Space().Name())
	}
	var removers []string
	if a.Background != nil {
		removers = a.Background.Methods()
	}
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": providers,
		"removers":  removers,
		"closet":    a.Closet != nil && a.Images != nil,
		"sessions":  a.sessionCount(),
	})
}

func (a *App) sessionCount() int {
	if a.Sessions == nil {
		return 0
	}
	return a.Sessions.Len()
}

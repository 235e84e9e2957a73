package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info reports the provider configuration without exposing the key.
func (a *App) Info(w http.ResponseWriter, r *http.Request) {
	if a.Provider == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "no provider configured")
		return
	}
	a.json(w, http.StatusOK, a.Provider.Info())
}

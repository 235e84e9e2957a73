package handlers

import "net/http"

// BreakerStatus lists every circuit breaker.
func (a *App) BreakerStatus(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"breakers": a.Orchestrator.BreakerSnapshots()})
}

// BreakerReset closes every circuit breaker.
func (a *App) BreakerReset(w http.ResponseWriter, r *http.Request) {
	a.Orchestrator.ResetBreakers()
	a.logger().Warn().Msg("http: circuit breakers reset by operator")
	a.json(w, http.StatusOK, map[string]any{"breakers": a.Orchestrator.BreakerSnapshots()})
}

// CacheClear empties the analysis cache.
func (a *App) CacheClear(w http.ResponseWriter, r *http.Request) {
	if a.Cache == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := a.Cache.Clear(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

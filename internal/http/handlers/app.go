package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"productstudio/internal/cache"
	"productstudio/internal/domain"
	"productstudio/internal/generation"
	"productstudio/internal/infra"
	"productstudio/internal/middleware"
	"productstudio/internal/providers/genai"
	"productstudio/internal/storage"
)

// ProviderInfo describes the configured model provider.
type ProviderInfo interface {
	Info() genai.Info
}

// App holds the dependencies shared by every handler.
type App struct {
	Orchestrator *generation.Orchestrator
	Store        *storage.TaskStore
	Cache        *cache.AnalysisCache
	Provider     ProviderInfo
	Defaults     Defaults
	Logger       *infra.Logger
}

// Defaults are applied to generation requests that leave a field unset.
type Defaults struct {
	ImageCount int
	Parallel   bool
	Model      domain.ModelTier
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// fail maps a domain error onto a status code and error kind.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := http.StatusInternalServerError, "internal"
	message := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code, kind = http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrNotFound):
		code, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrQuotaExceeded):
		code, kind = http.StatusForbidden, "quota_exceeded"
		message = domain.ErrQuotaExceeded.Error()
	case errors.Is(err, domain.ErrCircuitOpen):
		code, kind = http.StatusServiceUnavailable, "circuit_open"
		message = domain.ErrCircuitOpen.Error()
	case errors.Is(err, domain.ErrContentBlocked),
		errors.Is(err, domain.ErrParse),
		errors.Is(err, domain.ErrEmptyResponse),
		errors.Is(err, domain.ErrNoImageFound),
		errors.Is(err, domain.ErrNoImagesGenerated):
		code, kind = http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code, kind = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrStorage):
		message = "storage failure"
	}
	if code >= http.StatusInternalServerError {
		log := a.requestLogger(r)
		log.Error().Err(err).Msg("http: request failed")
	}
	a.error(w, code, kind, message)
}

func (a *App) currentUserID(r *http.Request) string {
	if id := middleware.UserIDFromContext(r.Context()); id != "" {
		return id
	}
	return generation.DefaultUserID
}

func (a *App) logger() *infra.Logger {
	if a.Logger == nil {
		return infra.NopLogger()
	}
	return a.Logger
}

func (a *App) requestLogger(r *http.Request) zerolog.Logger {
	return middleware.RequestLogger(r.Context(), *a.logger())
}

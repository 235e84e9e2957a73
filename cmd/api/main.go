package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"productstudio/internal/app"
	"productstudio/internal/http/handlers"
	httpapi "productstudio/internal/http/httpapi"
	"productstudio/internal/infra"
)

func main() {
	// .env is optional
	_ = godotenv.Load(".env.local", ".env")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to initialise services")
	}
	defer container.Close()

	httpLogger := infra.Component(logger, "http")
	handlerApp := &handlers.App{
		Orchestrator: container.Orchestrator,
		Store:        container.Store,
		Cache:        container.Cache,
		Provider:     container.Provider,
		Defaults: handlers.Defaults{
			ImageCount: cfg.DefaultImageCount,
			Parallel:   cfg.ParallelGeneration,
			Model:      container.DefaultModel,
		},
		Logger: &httpLogger,
	}
	router := httpapi.NewRouter(handlerApp, httpapi.Options{
		Logger:          &httpLogger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSAllowedOrigins,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("store", cfg.StoreBackend).Str("cache", cfg.CacheBackend).Msg("api: listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	if err := container.Cache.Persist(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to persist analysis cache")
	}
	logger.Info().Msg("api: server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/chatrelay/internal/adapters/http"
	"github.com/dkeye/chatrelay/internal/adapters/joke"
	sig "github.com/dkeye/chatrelay/internal/adapters/signal"
	"github.com/dkeye/chatrelay/internal/app"
	"github.com/dkeye/chatrelay/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Local .env is a dev convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	policy, err := app.PolicyFor(cfg.Backpressure)
	if err != nil {
		log.Fatal().Err(err).Msg("backpressure policy")
	}

	rooms := app.NewRoomManager()
	registry := app.NewRegistry()
	ctl := sig.NewSignalWSController(sig.Deps{
		Config:   cfg,
		Rooms:    rooms,
		Sessions: registry,
		Jokes:    joke.NewClient(cfg.JokeURL, cfg.JokeTimeout),
		Policy:   policy,
		Limiter:  sig.NewRoomRateLimiter(cfg.RateLimit.Messages, cfg.RateLimit.Interval),
	})

	r := router.SetupRouter(ctx, cfg, rooms, registry, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("chat relay started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		registry.CancelAll()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

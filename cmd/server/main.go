package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/imposter/internal/adapters/http"
	"github.com/dkeye/imposter/internal/app"
	"github.com/dkeye/imposter/internal/app/orch"
	"github.com/dkeye/imposter/internal/config"
	"github.com/dkeye/imposter/internal/content"
	"github.com/dkeye/imposter/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	store := core.NewStore(core.WithDefaultSettings(core.Settings{
		DescriptionSeconds: cfg.Game.DescriptionSeconds,
		VotingSeconds:      cfg.Game.VotingSeconds,
	}.Clamp()))
	machine := core.NewMachine(content.Default(),
		core.WithMinPlayers(cfg.Game.MinPlayers),
		core.WithChatMaxLength(cfg.Chat.MaxLength),
	)
	reg := app.NewRegistry(app.SimplePolicy{})

	game := orch.New(ctx, store, machine, reg, orch.Config{
		RoleRevealSeconds: cfg.Game.RoleRevealSeconds,
		ResultsSeconds:    cfg.Game.ResultsSeconds,
	})

	r := router.SetupRouter(ctx, cfg, game, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Imposter server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-game.Done()
	log.Info().Msg("Server exited gracefully")
}

// setupLogger keeps the console writer in debug mode and switches to JSON
// lines otherwise.
func setupLogger(cfg *config.Config) {
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

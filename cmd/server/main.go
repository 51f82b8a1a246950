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

	router "github.com/dkeye/voxengine/internal/adapters/http"
	sig "github.com/dkeye/voxengine/internal/adapters/signal"
	"github.com/dkeye/voxengine/internal/app"
	"github.com/dkeye/voxengine/internal/app/orch"
	"github.com/dkeye/voxengine/internal/config"
	"github.com/dkeye/voxengine/internal/logging"
	"github.com/dkeye/voxengine/internal/scenario"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	closer, err := logging.Setup(cfg.Log, cfg.Mode == "debug")
	if err != nil {
		log.Warn().Err(err).Str("level", cfg.Log.Level).Msg("unknown log level, using info")
	}
	defer closer.Close()

	gw, err := sig.NewGateway(cfg.Signal)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build signaling gateway")
	}

	reg := app.NewRegistry(app.SimplePolicy{MaxDropped: 16})
	o := orch.New(ctx, reg, scenario.Builtin(), gw, orch.Settings{
		MailboxSize:     cfg.Session.MailboxSize,
		MaxDuration:     cfg.Session.MaxDuration,
		DefaultScenario: cfg.Session.DefaultScenario,
		ObserverBuffer:  cfg.Session.ObserverBuffer,
	})
	gw.Host = o

	r := router.SetupRouter(ctx, cfg, o, gw)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Strs("scenarios", o.Scenarios.Names()).Msg("VoxEngine server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := o.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Int("sessions", reg.Len()).Msg("sessions still running at shutdown")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

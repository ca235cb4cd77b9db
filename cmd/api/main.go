package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/app"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/config"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/http"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/logging"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	log.Info().Msg("Starting Remnawave Provisioner...")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}
	defer a.Close()

	// Create module tables up front so the first callback does not pay for it
	if err := a.Schema.Ensure(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	server := http.NewServer(cfg, http.Deps{
		Module:  a.Provisioner,
		Admin:   a.Provisioner,
		CallLog: a.CallLog,
		DB:      a.DB,
		Metrics: a.Metrics.Handler(),
	})

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info().Str("addr", addr).Msg("server starting")
		if err := server.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("Server exited")
}

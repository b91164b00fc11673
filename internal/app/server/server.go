package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"decisioning-engine/internal/api"
	"decisioning-engine/internal/config"
	"decisioning-engine/internal/decisioning"
	"decisioning-engine/internal/request"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Engine: first artifact load happens here
	eng, err := decisioning.New(rootCtx, decisioning.Config{
		Client:           cfg.Decisioning.Client,
		OrganizationID:   cfg.Decisioning.OrganizationID,
		Environment:      cfg.Decisioning.Environment,
		CDNEnvironment:   cfg.Decisioning.CDNEnvironment,
		PropertyToken:    cfg.Decisioning.PropertyToken,
		ArtifactLocation: cfg.Decisioning.ArtifactLocation,
		PollingInterval:  cfg.PollingInterval(),
		MaximumWaitReady: cfg.MaximumWaitReady(),
		Logger:           log.Logger,
		GeoResolver:      request.PassthroughGeoResolver(),
		EventEmitter: func(event string, payload any) {
			log.Debug().Str("event", event).Interface("payload", payload).Msg("artifact event")
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init decisioning engine")
	}
	defer eng.StopPolling()

	if !eng.IsReady() {
		log.Warn().Msg("engine started without an artifact; delivery returns 503 until one loads")
	}

	// HTTP
	h := api.NewDeliveryHandler(eng)
	r := api.Router(h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

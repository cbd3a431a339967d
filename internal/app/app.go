package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"campaign-autopilot/internal/api"
	"campaign-autopilot/internal/cache"
	"campaign-autopilot/internal/config"
	"campaign-autopilot/internal/engine"
	"campaign-autopilot/internal/listener"
	"campaign-autopilot/internal/storage"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	store, err := storage.New(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	// Warm the rule snapshot so the first pass doesn't hit the DB cold.
	rules := &cache.Snapshot[[]engine.Rule]{}
	active, err := store.ListActiveRules(rootCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("initial rule load")
	}
	rules.Store(active)
	log.Info().Int("active_rules", len(active)).Msg("rule snapshot loaded")

	// HTTP
	h := api.NewHandler(store, rules, cfg)
	r := api.Router(h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listener (LISTEN/NOTIFY)
	go listener.ListenAndRefresh(rootCtx, store, rules, cfg.Listener.Channel, cfg.Backoff())

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

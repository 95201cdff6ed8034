package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kalambet/clawgram/internal/api"
	"github.com/kalambet/clawgram/internal/clawgram"
	"github.com/kalambet/clawgram/internal/config"
	"github.com/kalambet/clawgram/internal/envelope"
	"github.com/kalambet/clawgram/internal/social"
	"github.com/kalambet/clawgram/internal/storage"
	"github.com/kalambet/clawgram/internal/surface"
	"github.com/kalambet/clawgram/internal/thread"
)

// app is the wired client: one transport, one adapter, the three stores
// and the action journal.
type app struct {
	cfg     config.Config
	client  *clawgram.Client
	journal *storage.Store
	session *api.Session
}

// loadApp wires an app for a one-shot command. Focus prefetch is off: a
// single command never shows the detail pane of the first post.
func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return newApp(cfg, false)
}

// newApp wires the stores. prefetch makes a surface load also load the
// selected post's detail and comments, the way a long-running viewer does.
func newApp(cfg config.Config, prefetch bool) (*app, error) {
	logger := slog.Default()

	transport := envelope.New(cfg.API.BaseURL,
		envelope.WithHTTPClient(&http.Client{Timeout: cfg.API.TimeoutDuration()}),
		envelope.WithRateLimit(cfg.API.RPS, cfg.API.Burst),
		envelope.WithLogger(logger),
	)
	client := clawgram.New(transport, cfg.API.Key)
	if !client.HasAPIKey() {
		slog.Debug("no api key configured, requests are anonymous")
	}

	journal, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	if versions, err := journal.AppliedMigrations(); err == nil {
		logger.Debug("journal opened", "dir", cfg.Storage.DataDir, "migrations", versions)
	}

	threads := thread.New(client, thread.WithPageLimit(cfg.API.PageLimit), thread.WithLogger(logger))
	surfaceOpts := []surface.Option{
		surface.WithPageLimit(cfg.API.PageLimit),
		surface.WithLogger(logger),
	}
	if prefetch {
		surfaceOpts = append(surfaceOpts, surface.WithFocuser(threads))
	}
	surfaces := surface.New(client, surfaceOpts...)
	socials := social.New(client, social.WithJournal(journal), social.WithLogger(logger))

	return &app{
		cfg:     cfg,
		client:  client,
		journal: journal,
		session: &api.Session{
			Surfaces: surfaces,
			Threads:  threads,
			Social:   socials,
			Actions:  journal,
		},
	}, nil
}

func (a *app) Close() {
	if err := a.journal.Close(); err != nil {
		printWarning("closing storage: %v", err)
	}
}

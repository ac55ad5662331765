package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/calmbridge/internal/coach"
	"github.com/danielpatrickdp/calmbridge/internal/config"
	"github.com/danielpatrickdp/calmbridge/internal/script"
	"github.com/danielpatrickdp/calmbridge/internal/session"
	"github.com/danielpatrickdp/calmbridge/internal/state"
)

// app is the wired core shared by the subcommands.
type app struct {
	catalog  *script.Catalog
	pipeline *coach.Pipeline
	store    *state.Store
	sessions *session.Service
}

// loadCatalog returns the bundled libraries with the configured directory
// layered on top.
func loadCatalog(cfg *config.Config) (*script.Catalog, error) {
	catalog, err := script.LoadBundled(cfg.Scripts.DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if cfg.Scripts.Dir != "" {
		if err := catalog.LoadDir(cfg.Scripts.Dir); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// openApp wires the catalog, pipeline, store and session service. dbPath
// overrides cfg.Storage.Path when non-empty.
func openApp(cfg *config.Config, logger *zap.Logger, dbPath string) (*app, error) {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	if dbPath == "" {
		dbPath = cfg.Storage.Path
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", dbPath, err)
	}

	pipeline := coach.NewPipeline(cfg.PipelineConfig(), catalog)
	return &app{
		catalog:  catalog,
		pipeline: pipeline,
		store:    store,
		sessions: session.NewService(store, pipeline, logger, session.WithInitialState(cfg.InitialState())),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

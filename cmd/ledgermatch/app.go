package main

import (
	"fmt"

	"github.com/petrel-io/ledgermatch/internal/config"
	"github.com/petrel-io/ledgermatch/internal/engine"
	"github.com/petrel-io/ledgermatch/internal/reconcile"
	"github.com/petrel-io/ledgermatch/internal/storage"
)

// app bundles the collaborators commands share. Close releases the store.
type app struct {
	cfg        *config.Config
	store      *storage.SQLiteStorage
	controller *reconcile.Controller
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	matcher := engine.NewMatcher(cfg.Engine)

	return &app{
		cfg:        cfg,
		store:      store,
		controller: reconcile.NewController(store, matcher),
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

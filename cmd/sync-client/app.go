package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/splenwilz/clipslot/internal/apiclient"
	"github.com/splenwilz/clipslot/internal/clientstore"
	"github.com/splenwilz/clipslot/internal/config"
	"github.com/splenwilz/clipslot/internal/envelope"
	"github.com/splenwilz/clipslot/internal/logging"
	"github.com/splenwilz/clipslot/internal/pairing"
	"github.com/splenwilz/clipslot/internal/secretstore"
	"github.com/splenwilz/clipslot/internal/syncmanager"
)

// app bundles everything a CLI command needs. It is assembled fresh per
// invocation (this is a CLI, not a long-lived daemon, aside from `sync
// start`) and torn down via close.
type app struct {
	cfg     *config.ClientConfig
	log     zerolog.Logger
	secrets *secretstore.Store
	store   *clientstore.Store
	enc     *envelope.Engine
	api     *apiclient.Client
	pairing *pairing.Helper
	manager *syncmanager.Manager
}

func newApp() (*app, error) {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".clipslot")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	log := logging.New("sync-client", logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogFile == ""})
	if cfg.LogFile != "" {
		writer, err := logging.RotatingFileWriter(cfg.LogFile, cfg.LogFileThreshold)
		if err != nil {
			return nil, err
		}
		log = logging.New("sync-client", logging.Options{Level: cfg.LogLevel, Output: writer})
	}

	secrets := secretstore.New(dataDir)
	masterKey, err := secrets.LoadOrGenerate()
	if err != nil {
		return nil, err
	}
	enc, err := envelope.NewEngine(masterKey)
	if err != nil {
		return nil, err
	}

	store, err := clientstore.Open(filepath.Join(dataDir, "clipslot.db"), enc, log)
	if err != nil {
		return nil, err
	}

	serverURL, err := store.SyncServerURL(cfg.DefaultServerURL)
	if err != nil {
		store.Close()
		return nil, err
	}
	api := apiclient.New(serverURL)

	manager := syncmanager.New(store, api, cfg.HistorySyncOptIn, log)
	if err := manager.Restore(); err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		secrets: secrets,
		store:   store,
		enc:     enc,
		api:     api,
		pairing: pairing.New(api),
		manager: manager,
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

// requireAuth returns the current session's bearer token or a friendly
// error if the user hasn't logged in yet.
func (a *app) requireAuth() (string, error) {
	auth := a.manager.AuthState()
	if auth == nil {
		return "", fmt.Errorf("not logged in: run 'sync-client login' first")
	}
	return auth.Token, nil
}

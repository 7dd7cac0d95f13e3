package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/balkashynov/relay/internal/ai"
	"github.com/balkashynov/relay/internal/client"
	"github.com/balkashynov/relay/internal/config"
	"github.com/balkashynov/relay/internal/db"
	"github.com/balkashynov/relay/internal/logging"
	"github.com/balkashynov/relay/internal/models"
	"github.com/balkashynov/relay/internal/session"
)

// backend is the data surface shared by the local store and the API client
type backend interface {
	session.Store
	ListSessions(ctx context.Context) ([]models.Session, error)
	CreateSession(ctx context.Context, req models.CreateSessionRequest) (*models.Session, error)
	RenameSession(ctx context.Context, id, name string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

var (
	_ backend = (*db.Store)(nil)
	_ backend = (*client.Client)(nil)
)

// app holds everything a command needs, wired from config
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	backend  backend
	analyzer session.Analyzer
	closers  []func() error
}

type appOptions struct {
	// logToFile sends logs to ~/.relay/relay.log unless log.file is set.
	// Needed whenever a TUI or an MCP stdio session owns the terminal.
	logToFile bool
}

// newApp loads config and connects either to the backend or, with --local,
// straight to the database and the model
func newApp(opts appOptions) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logFile := cfg.Log.File
	if logFile == "" && opts.logToFile {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		logFile = filepath.Join(dir, "relay.log")
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, logFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() error {
		_ = log.Sync()
		return nil
	})

	if !localMode {
		c := client.New(cfg.Server.URL, cfg.Server.Token, cfg.Client.Timeout, log)
		a.backend = c
		a.analyzer = c
		return a, nil
	}

	store, svc, err := openLocal(cfg, log)
	if err != nil {
		return nil, err
	}
	a.backend = store
	a.analyzer = svc
	a.closers = append(a.closers, store.Close)
	return a, nil
}

// openLocal opens the database and the model. A missing API key leaves the
// service unconfigured rather than failing.
func openLocal(cfg *config.Config, log *zap.Logger) (*db.Store, *ai.Service, error) {
	store, err := db.Open(cfg.DB.Path, log)
	if err != nil {
		return nil, nil, err
	}

	var model ai.Model
	m, err := ai.NewOpenAIModel(ai.OpenAIConfig{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, log)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		log.Warn("no AI API key configured, analysis and chat are disabled")
	case err != nil:
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to set up model: %w", err)
	default:
		model = m
	}
	return store, ai.NewService(model, log), nil
}

// deps builds controller dependencies from config
func (a *app) deps() session.Deps {
	return session.Deps{
		Store:          a.backend,
		Analyzer:       a.analyzer,
		Log:            a.log,
		AutosaveDelay:  a.cfg.Note.AutosaveDelay,
		HighlightDwell: a.cfg.Note.HighlightDwell,
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("shutdown", zap.Error(err))
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/capstone-search/internal/config"
	"github.com/dshills/capstone-search/internal/embedder"
	"github.com/dshills/capstone-search/internal/grouper"
	"github.com/dshills/capstone-search/internal/indexer"
	"github.com/dshills/capstone-search/internal/logging"
	"github.com/dshills/capstone-search/internal/metrics"
	"github.com/dshills/capstone-search/internal/retrieval"
	"github.com/dshills/capstone-search/internal/storage"
	"github.com/dshills/capstone-search/internal/summarizer"
)

// app holds the services shared by every command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *storage.SQLiteStorage
	embedder embedder.Embedder
	metrics  *metrics.Exporter
	engine   *retrieval.Engine
	cards    *grouper.Grouper
	indexer  *indexer.Indexer
}

// newApp loads configuration, opens the database and wires the services
func newApp() (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	exporter := metrics.New(metrics.DefaultConfig())

	engine, err := retrieval.New(store, store, embedder.Func(emb),
		retrieval.WithLogger(logger),
		retrieval.WithRecorder(exporter),
		retrieval.WithLexicalBoost(cfg.LexicalBoost),
		retrieval.WithDegradeOnLexicalFailure(cfg.DegradeOnLexicalFailure),
	)
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, err
	}

	logger.Debug("services ready",
		"db", cfg.DBPath,
		"driver", storage.DriverName,
		"embedding_provider", emb.Provider(),
		"embedding_model", emb.Model(),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		embedder: emb,
		metrics:  exporter,
		engine:   engine,
		cards:    grouper.New(store),
		indexer:  indexer.New(store, emb, indexer.WithLogger(logger), indexer.WithRecorder(exporter)),
	}, nil
}

// summarizer builds the summary service from the configured generator
func (a *app) summarizer() (*summarizer.Service, error) {
	gen, err := summarizer.NewGenerator(a.cfg.GeneratorConfig())
	if err != nil {
		return nil, err
	}
	return summarizer.New(a.engine, gen,
		summarizer.WithLogger(a.logger),
		summarizer.WithFetchLimit(a.cfg.FetchLimit),
	)
}

func (a *app) Close() error {
	return errors.Join(a.embedder.Close(), a.store.Close())
}

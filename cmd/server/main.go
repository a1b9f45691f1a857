package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sitematch/backend/internal/api"
	"github.com/sitematch/backend/internal/config"
	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/engine"
	"github.com/sitematch/backend/internal/storage"
)

func main() {
	// Setup Logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logger.WithField("service", "sitematch-api")

	// 1. Config
	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		entry.WithError(err).Warn("Invalid LOG_LEVEL, using info")
	}

	entry.Info("Starting SiteMatch API Service")

	// 2. Corpus
	corp, err := corpus.LoadFile(cfg.Corpus.Path)
	if err != nil {
		entry.Fatalf("Failed to load corpus: %v", err)
	}
	entry.WithFields(logrus.Fields{
		"path":       cfg.Corpus.Path,
		"sites":      corp.Len(),
		"categories": corp.FlagNames,
	}).Info("Loaded site corpus")

	// 3. Query log
	qlog, err := openQueryLog(cfg.QueryLog, entry)
	if err != nil {
		entry.Fatalf("Failed to initialize query log: %v", err)
	}
	defer qlog.Close()

	// 4. Engine
	eng, err := engine.NewEngine(cfg, entry.WithField("component", "engine"), corp, qlog)
	if err != nil {
		entry.Fatalf("Failed to initialize engine: %v", err)
	}

	// 5. API Server
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(eng, entry, cfg.Server)
	if err := server.Start(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		entry.Error(err)
		qlog.Close()
		os.Exit(1)
	}
	entry.Info("SiteMatch API Service stopped")
}

func openQueryLog(cfg config.QueryLogConfig, entry *logrus.Entry) (storage.QueryLog, error) {
	logger := entry.WithField("component", "query_log")
	switch cfg.Backend {
	case "file", "":
		return storage.NewFileStorage(cfg.Path, logger)
	case "sqlite":
		return storage.NewSQLiteStorage(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown query log backend %q", cfg.Backend)
	}
}

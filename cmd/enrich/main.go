package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sitematch/backend/internal/config"
	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/enrich"
	"github.com/sitematch/backend/internal/fetcher"
	"github.com/sitematch/backend/internal/politeness"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logger.WithField("service", "sitematch-enrich")

	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	corp, err := corpus.LoadFile(cfg.Corpus.Path)
	if err != nil {
		entry.Fatalf("Failed to load corpus: %v", err)
	}
	entry.WithFields(logrus.Fields{
		"path":        cfg.Corpus.Path,
		"sites":       corp.Len(),
		"concurrency": cfg.Enrich.Concurrency,
	}).Info("Enriching site descriptions")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enricher := enrich.NewEnricher(
		cfg.Enrich,
		fetcher.NewFetcher(cfg.Enrich.RequestTimeout, cfg.Enrich.UserAgent),
		politeness.NewPolitenessManager(cfg.Enrich, entry.WithField("component", "politeness_manager")),
		entry.WithField("component", "enricher"),
	)

	enriched, _, err := enricher.Enrich(ctx, corp)
	if err != nil {
		entry.Fatalf("Enrichment failed: %v", err)
	}

	if err := writeCorpus(cfg.Enrich.OutputPath, enriched); err != nil {
		entry.Fatalf("Failed to write enriched corpus: %v", err)
	}
	entry.WithField("path", cfg.Enrich.OutputPath).Info("Wrote enriched corpus")
}

// writeCorpus writes to a temporary file and renames it into place.
func writeCorpus(path string, corp *corpus.Corpus) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".enrich-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := corp.WriteCSV(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

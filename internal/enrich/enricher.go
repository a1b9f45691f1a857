// Package enrich fills the description column of the site table with the
// visible text of each site's web page.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sitematch/backend/internal/config"
	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/fetcher"
	"github.com/sitematch/backend/internal/metrics"
	"github.com/sitematch/backend/internal/politeness"
)

// Page outcomes, also used as metric labels.
const (
	OutcomeFetched    = "fetched"
	OutcomeDisallowed = "disallowed"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
)

// PageFetcher downloads one page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// Gate decides whether and when a URL may be requested.
type Gate interface {
	IsURLAllowed(ctx context.Context, rawURL string) (bool, error)
	Wait(ctx context.Context, rawURL string) error
}

// Report counts page outcomes of one run.
type Report struct {
	Fetched    int
	Disallowed int
	Failed     int
	Skipped    int
}

type Enricher struct {
	config  config.EnrichConfig
	fetcher PageFetcher
	gate    Gate
	logger  *logrus.Entry
}

func NewEnricher(cfg config.EnrichConfig, f PageFetcher, gate Gate, logger *logrus.Entry) *Enricher {
	if logger == nil {
		logger = logrus.WithField("component", "enricher")
	}
	return &Enricher{config: cfg, fetcher: f, gate: gate, logger: logger}
}

// Enrich returns a copy of corp where each record with a website and no
// description (any record with a website when Overwrite is set) carries the
// text of its page. Pages that fail keep their previous description.
func (e *Enricher) Enrich(ctx context.Context, corp *corpus.Corpus) (*corpus.Corpus, Report, error) {
	records := make([]corpus.SiteRecord, len(corp.Records))
	copy(records, corp.Records)

	var (
		mu     sync.Mutex
		report Report
	)
	record := func(outcome string) {
		metrics.EnrichPages.WithLabelValues(outcome).Inc()
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case OutcomeFetched:
			report.Fetched++
		case OutcomeDisallowed:
			report.Disallowed++
		case OutcomeFailed:
			report.Failed++
		case OutcomeSkipped:
			report.Skipped++
		}
	}

	limit := e.config.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range records {
		if gctx.Err() != nil {
			break
		}
		rec := &records[i]
		if !e.needsText(*rec) {
			record(OutcomeSkipped)
			continue
		}

		g.Go(func() error {
			text, outcome, err := e.fetchText(gctx, normalizeURL(rec.Website))
			log := e.logger.WithFields(logrus.Fields{
				"appic_number": rec.ID,
				"url":          rec.Website,
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.WithError(err).Warn("Failed to enrich site")
			}
			if text != "" {
				rec.Description = text
			} else if outcome == OutcomeFetched {
				outcome = OutcomeFailed
			}
			record(outcome)
			log.WithField("outcome", outcome).Debug("Processed site page")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, report, fmt.Errorf("enrichment interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, report, fmt.Errorf("enrichment interrupted: %w", err)
	}

	enriched, err := corpus.New(records, corp.FlagNames, corp.Version+"+enriched")
	if err != nil {
		return nil, report, err
	}

	e.logger.WithFields(logrus.Fields{
		"fetched":    report.Fetched,
		"disallowed": report.Disallowed,
		"failed":     report.Failed,
		"skipped":    report.Skipped,
	}).Info("Enrichment finished")
	return enriched, report, nil
}

func (e *Enricher) needsText(rec corpus.SiteRecord) bool {
	if strings.TrimSpace(rec.Website) == "" {
		return false
	}
	return e.config.Overwrite || strings.TrimSpace(rec.Description) == ""
}

func (e *Enricher) fetchText(ctx context.Context, url string) (string, string, error) {
	allowed, err := e.gate.IsURLAllowed(ctx, url)
	if err != nil {
		return "", OutcomeFailed, err
	}
	if !allowed {
		return "", OutcomeDisallowed, nil
	}
	if err := e.gate.Wait(ctx, url); err != nil {
		return "", OutcomeFailed, err
	}

	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", OutcomeFailed, err
	}
	return page.Text, OutcomeFetched, nil
}

// normalizeURL adds a scheme to bare host names such as "www.example.org".
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + strings.TrimPrefix(raw, "//")
}

var _ Gate = (*politeness.PolitenessManager)(nil)
var _ PageFetcher = (*fetcher.Fetcher)(nil)

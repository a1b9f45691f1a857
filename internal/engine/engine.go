package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sitematch/backend/internal/config"
	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/metrics"
	"github.com/sitematch/backend/internal/recommend"
	"github.com/sitematch/backend/internal/storage"
)

// Engine serves recommendation requests over a loaded corpus and query log
type Engine struct {
	Config      *config.Config
	Logger      *logrus.Entry
	Corpus      *corpus.Corpus
	QueryLog    storage.QueryLog
	Recommender *recommend.Recommender
	Cache       *recommend.SpaceCache

	now   func() time.Time
	newID func() string

	mu    sync.RWMutex
	stats EngineStats
}

type EngineStats struct {
	Requests  int64
	Failures  int64
	LastError string
	StartTime time.Time
}

// Query is a validated recommendation request.
type Query struct {
	Favorites []int
	Program   string
	Degree    string
	// Collaborative overrides the configured mode when set.
	Collaborative *bool
	// Limit overrides the configured result limit when positive.
	Limit int
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, corp *corpus.Corpus, qlog storage.QueryLog) (*Engine, error) {
	if corp == nil {
		return nil, fmt.Errorf("corpus is required")
	}
	if qlog == nil {
		return nil, fmt.Errorf("query log is required")
	}

	var cache *recommend.SpaceCache
	if cfg.Recommend.CacheEnabled {
		cache = recommend.NewSpaceCache(cfg.Recommend.CacheSize)
	}

	return &Engine{
		Config:   cfg,
		Logger:   logger,
		Corpus:   corp,
		QueryLog: qlog,
		Recommender: recommend.NewRecommender(recommend.Options{
			MaxFeatures:        cfg.Recommend.MaxFeatures,
			CollaborativeLimit: cfg.Recommend.CollaborativeLimit,
			Cache:              cache,
		}, logger),
		Cache: cache,
		now:   time.Now,
		newID: uuid.NewString,
		stats: EngineStats{StartTime: time.Now()},
	}, nil
}

// Recommend filters the corpus to the query's categories, records the query
// in the log and returns the ranked sites.
func (e *Engine) Recommend(ctx context.Context, q Query) ([]recommend.Result, error) {
	start := time.Now()
	results, err := e.recommend(ctx, q)
	metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	metrics.RecommendRequests.WithLabelValues(outcome(err)).Inc()

	e.mu.Lock()
	e.stats.Requests++
	if err != nil {
		e.stats.Failures++
		e.stats.LastError = err.Error()
	}
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.Score.Collaborative {
			metrics.RecommendResults.WithLabelValues("collaborative").Inc()
		} else {
			metrics.RecommendResults.WithLabelValues("content").Inc()
		}
	}
	return results, nil
}

func (e *Engine) recommend(ctx context.Context, q Query) ([]recommend.Result, error) {
	log := e.Logger.WithFields(logrus.Fields{
		"favorites": q.Favorites,
		"program":   q.Program,
		"degree":    q.Degree,
	})

	records, err := e.Corpus.Filter(q.Program, q.Degree)
	if err != nil {
		return nil, err
	}

	// A failed append loses one history row but must not fail the request.
	entry := recommend.QueryLogEntry{
		ID:        e.newID(),
		CreatedAt: e.now(),
		Favorites: q.Favorites,
		Program:   q.Program,
		Degree:    q.Degree,
	}
	if err := e.QueryLog.Append(ctx, entry); err != nil {
		metrics.QueryLogErrors.WithLabelValues("append").Inc()
		log.WithError(err).Error("Failed to append query log entry")
	}

	collaborative := e.Config.Recommend.Collaborative
	if q.Collaborative != nil {
		collaborative = *q.Collaborative
	}
	limit := e.Config.Recommend.Limit
	if q.Limit > 0 {
		limit = q.Limit
	}

	var history []recommend.QueryLogEntry
	if collaborative {
		history, err = e.QueryLog.Entries(ctx)
		if err != nil {
			metrics.QueryLogErrors.WithLabelValues("read").Inc()
			return nil, fmt.Errorf("failed to read query log: %w", err)
		}
	}

	var cacheKey string
	if e.Cache != nil {
		cacheKey = recommend.CacheKey(q.Program, q.Degree, e.Corpus.Version)
	}

	results, err := e.Recommender.Recommend(recommend.Request{
		Records:       records,
		Favorites:     q.Favorites,
		Log:           history,
		Collaborative: collaborative,
		Limit:         limit,
		CacheKey:      cacheKey,
	})
	if err != nil {
		log.WithError(err).Warn("Recommendation failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"subset":  len(records),
		"results": len(results),
	}).Info("Served recommendations")
	return results, nil
}

// Stats returns a copy of the request counters.
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, recommend.ErrEmptyCorpus):
		return metrics.OutcomeEmptyCorpus
	case errors.Is(err, recommend.ErrNoMatch):
		return metrics.OutcomeNoMatch
	case errors.Is(err, corpus.ErrUnknownCategory):
		return metrics.OutcomeUnknownCategory
	default:
		return metrics.OutcomeError
	}
}

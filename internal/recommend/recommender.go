package recommend

import (
	"github.com/sirupsen/logrus"

	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/search"
)

// Request carries the inputs of one recommendation.
type Request struct {
	// Records is the corpus subset already filtered to the caller's category.
	Records []corpus.SiteRecord
	// Favorites are the seed identifiers; duplicates are ignored.
	Favorites []int
	// Log is a snapshot of the historical query log.
	Log []QueryLogEntry
	// Collaborative prepends co-occurrence suggestions to the content results.
	Collaborative bool
	// Limit caps the content results. Zero means DefaultLimit.
	Limit int
	// CacheKey identifies Records for the vector space cache. Empty disables
	// caching for this request.
	CacheKey string
}

// Recommender runs the per-request pipeline: vector space, content ranking,
// optional co-occurrence scoring, merge.
type Recommender struct {
	vectorizer         *search.TFIDFVectorizer
	collaborativeLimit int
	cache              *SpaceCache
	logger             *logrus.Entry
}

// Options configures a Recommender.
type Options struct {
	MaxFeatures        int
	CollaborativeLimit int
	// Cache is optional; nil rebuilds the vector space on every request.
	Cache *SpaceCache
}

func NewRecommender(opts Options, logger *logrus.Entry) *Recommender {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.CollaborativeLimit <= 0 {
		opts.CollaborativeLimit = DefaultCollaborativeLimit
	}
	return &Recommender{
		vectorizer:         search.NewTFIDFVectorizer(opts.MaxFeatures),
		collaborativeLimit: opts.CollaborativeLimit,
		cache:              opts.Cache,
		logger:             logger.WithField("component", "recommender"),
	}
}

// Recommend returns collaborative suggestions (if enabled) followed by the
// content-ranked sites. It fails with ErrEmptyCorpus or ErrNoMatch.
func (r *Recommender) Recommend(req Request) ([]Result, error) {
	if len(req.Records) == 0 {
		return nil, ErrEmptyCorpus
	}

	space, err := r.space(req)
	if err != nil {
		return nil, err
	}

	content, err := RankByContent(space, req.Records, req.Favorites, req.Limit)
	if err != nil {
		return nil, err
	}

	if !req.Collaborative {
		return content, nil
	}

	model := BuildCooccurrence(req.Log)
	suggestions := model.Score(req.Favorites)
	r.logger.WithFields(logrus.Fields{
		"log_entries": model.Entries(),
		"skipped":     model.Skipped(),
		"pairs":       len(model.pairs),
		"suggestions": len(suggestions),
	}).Debug("Scored co-occurrence candidates")

	return Merge(suggestions, content, req.Records, true, r.collaborativeLimit), nil
}

func (r *Recommender) space(req Request) (*search.Space, error) {
	build := func() (*search.Space, error) {
		docs := make([]string, len(req.Records))
		for i, rec := range req.Records {
			docs[i] = rec.Description
		}
		space, err := r.vectorizer.FitTransform(docs)
		if err != nil {
			return nil, err
		}
		r.logger.WithFields(logrus.Fields{
			"documents":  len(docs),
			"vocabulary": space.Dim(),
		}).Debug("Built vector space")
		return space, nil
	}

	if r.cache == nil || req.CacheKey == "" {
		return build()
	}
	return r.cache.GetOrBuild(req.CacheKey, build)
}

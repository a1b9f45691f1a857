package recommend

import (
	"sort"

	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/search"
)

// RankByContent scores every record by cosine similarity between its row and
// the centroid of the favorite rows, drops the favorites and returns the top
// limit records. space must have one row per record, in the same order.
// Ties keep corpus order. records is not modified.
func RankByContent(space *search.Space, records []corpus.SiteRecord, favorites []int, limit int) ([]Result, error) {
	if len(records) == 0 {
		return nil, ErrEmptyCorpus
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	_, favSet := favoriteSet(favorites)

	var favRows []int
	for i, rec := range records {
		if _, ok := favSet[rec.ID]; ok {
			favRows = append(favRows, i)
		}
	}
	if len(favRows) == 0 {
		return nil, ErrNoMatch
	}

	scores := space.Similarities(space.Centroid(favRows))

	candidates := make([]int, 0, len(records)-len(favRows))
	for i, rec := range records {
		if _, ok := favSet[rec.ID]; !ok {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return scores[candidates[a]] > scores[candidates[b]]
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]Result, len(candidates))
	for i, row := range candidates {
		results[i] = newResult(records[row], Similarity(scores[row]))
	}
	return results, nil
}

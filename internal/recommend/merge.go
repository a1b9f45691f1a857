package recommend

import (
	"github.com/sitematch/backend/internal/corpus"
)

// Merge prepends the collaborative suggestions, in rank order, to the content
// results. Only the first collaborativeLimit suggestions are considered and
// suggestions missing from records are dropped. An identifier present in both
// lists is emitted twice. With collaborative off, content is returned as is.
func Merge(suggestions []Candidate, content []Result, records []corpus.SiteRecord, collaborative bool, collaborativeLimit int) []Result {
	if !collaborative || len(suggestions) == 0 {
		return content
	}
	if collaborativeLimit <= 0 {
		collaborativeLimit = DefaultCollaborativeLimit
	}
	if len(suggestions) > collaborativeLimit {
		suggestions = suggestions[:collaborativeLimit]
	}

	byID := make(map[int]int, len(records))
	for i, rec := range records {
		byID[rec.ID] = i
	}

	merged := make([]Result, 0, len(suggestions)+len(content))
	for _, s := range suggestions {
		if i, ok := byID[s.ID]; ok {
			merged = append(merged, newResult(records[i], CollaborativeScore()))
		}
	}
	return append(merged, content...)
}

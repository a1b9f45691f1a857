package recommend

import (
	"sort"
)

// Pair is an unordered pair of distinct identifiers, stored with A < B, and
// the number of log entries containing both.
type Pair struct {
	A, B  int
	Count int
}

// Candidate is a collaboratively suggested identifier and its aggregate
// co-occurrence score.
type Candidate struct {
	ID    int
	Score int
}

// CooccurrenceModel counts how often identifiers were submitted together.
type CooccurrenceModel struct {
	pairs     []Pair
	pairIndex map[[2]int]int
	// neighbors maps an identifier to its pairs in creation order.
	neighbors map[int][]int
	entries   int
	skipped   int
}

// BuildCooccurrence mines the historical log. Entries with fewer than two
// distinct positive identifiers are skipped, repeated identifiers within an
// entry count once, and an entry replayed under the same ID is counted once.
func BuildCooccurrence(log []QueryLogEntry) *CooccurrenceModel {
	m := &CooccurrenceModel{
		pairIndex: make(map[[2]int]int),
		neighbors: make(map[int][]int),
	}
	seenEntries := make(map[string]struct{})

	for _, entry := range log {
		if entry.ID != "" {
			if _, dup := seenEntries[entry.ID]; dup {
				m.skipped++
				continue
			}
			seenEntries[entry.ID] = struct{}{}
		}

		ids := distinctValid(entry.Favorites)
		if len(ids) < 2 {
			m.skipped++
			continue
		}
		m.entries++

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				m.add(ids[i], ids[j])
			}
		}
	}
	return m
}

func (m *CooccurrenceModel) add(a, b int) {
	if a > b {
		a, b = b, a
	}
	key := [2]int{a, b}
	if idx, ok := m.pairIndex[key]; ok {
		m.pairs[idx].Count++
		return
	}
	idx := len(m.pairs)
	m.pairs = append(m.pairs, Pair{A: a, B: b, Count: 1})
	m.pairIndex[key] = idx
	m.neighbors[a] = append(m.neighbors[a], idx)
	m.neighbors[b] = append(m.neighbors[b], idx)
}

func distinctValid(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Count returns the number of entries containing both a and b.
func (m *CooccurrenceModel) Count(a, b int) int {
	if a > b {
		a, b = b, a
	}
	if idx, ok := m.pairIndex[[2]int{a, b}]; ok {
		return m.pairs[idx].Count
	}
	return 0
}

// Pairs returns the known pairs in first-seen order.
func (m *CooccurrenceModel) Pairs() []Pair {
	return append([]Pair(nil), m.pairs...)
}

// Entries returns how many log entries contributed pairs.
func (m *CooccurrenceModel) Entries() int { return m.entries }

// Skipped returns how many log entries were ignored.
func (m *CooccurrenceModel) Skipped() int { return m.skipped }

// Score ranks identifiers by their total co-occurrence with the favorites.
// Favorites are never candidates; ties keep first-discovery order.
func (m *CooccurrenceModel) Score(favorites []int) []Candidate {
	ordered, favSet := favoriteSet(favorites)

	var candidates []Candidate
	position := make(map[int]int)
	for _, fav := range ordered {
		for _, idx := range m.neighbors[fav] {
			p := m.pairs[idx]
			other := p.A
			if other == fav {
				other = p.B
			}
			if _, isFav := favSet[other]; isFav {
				continue
			}
			if i, ok := position[other]; ok {
				candidates[i].Score += p.Count
				continue
			}
			position[other] = len(candidates)
			candidates = append(candidates, Candidate{ID: other, Score: p.Count})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

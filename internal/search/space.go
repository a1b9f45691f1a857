package search

import (
	"math"
)

// Vector is a sparse row of a vector space. Indices are ascending column
// positions and Values the matching weights.
type Vector struct {
	Indices []int
	Values  []float64
}

// Space is a document-term matrix built by TFIDFVectorizer.
type Space struct {
	Vocabulary []string
	Rows       []Vector

	index map[string]int
}

// Dim returns the number of vocabulary columns.
func (s *Space) Dim() int {
	return len(s.Vocabulary)
}

// Column returns the column of term, or -1 if the term is not in the vocabulary.
func (s *Space) Column(term string) int {
	if col, ok := s.index[term]; ok {
		return col
	}
	return -1
}

// Centroid returns the element-wise mean of the given rows as a dense vector.
func (s *Space) Centroid(rows []int) []float64 {
	centroid := make([]float64, s.Dim())
	if len(rows) == 0 {
		return centroid
	}
	for _, r := range rows {
		row := s.Rows[r]
		for i, col := range row.Indices {
			centroid[col] += row.Values[i]
		}
	}
	n := float64(len(rows))
	for i := range centroid {
		centroid[i] /= n
	}
	return centroid
}

// Similarities returns the cosine similarity of every row against the
// dense query vector, in row order.
func (s *Space) Similarities(query []float64) []float64 {
	scores := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		scores[i] = CosineSimilarity(query, row)
	}
	return scores
}

// CosineSimilarity calculates the cosine similarity between a dense vector
// and a sparse row. Zero vectors score 0; the result is clamped to [0,1]
// since all weights are nonnegative.
func CosineSimilarity(dense []float64, row Vector) float64 {
	var dotProduct, normA, normB float64
	for _, x := range dense {
		normA += x * x
	}
	for i, col := range row.Indices {
		v := row.Values[i]
		normB += v * v
		if col < len(dense) {
			dotProduct += dense[col] * v
		}
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	score := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(0, math.Min(1, score))
}

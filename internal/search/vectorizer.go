package search

import (
	"errors"
	"math"
	"sort"
)

// DefaultMaxFeatures caps the vocabulary of a vector space.
const DefaultMaxFeatures = 5000

// ErrEmptyCorpus is returned when there are no documents to vectorize.
var ErrEmptyCorpus = errors.New("empty corpus")

// TFIDFVectorizer implements Term Frequency - Inverse Document Frequency
// over a vocabulary limited to the MaxFeatures most frequent terms.
type TFIDFVectorizer struct {
	MaxFeatures int
}

func NewTFIDFVectorizer(maxFeatures int) *TFIDFVectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	return &TFIDFVectorizer{MaxFeatures: maxFeatures}
}

// FitTransform learns the vocabulary and IDF weights from docs and returns
// one L2-normalized row per document, in input order.
func (v *TFIDFVectorizer) FitTransform(docs []string) (*Space, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	// 1. Tokenize once, collect corpus-wide term and document frequencies
	tokenized := make([][]string, len(docs))
	termCounts := make(map[string]int)
	docCounts := make(map[string]int)
	for i, doc := range docs {
		tokens := Tokenize(doc)
		tokenized[i] = tokens
		seenInDoc := make(map[string]bool)
		for _, token := range tokens {
			termCounts[token]++
			if !seenInDoc[token] {
				docCounts[token]++
				seenInDoc[token] = true
			}
		}
	}

	// 2. Keep the most frequent terms, columns ordered alphabetically
	vocabulary := selectVocabulary(termCounts, v.MaxFeatures)
	index := make(map[string]int, len(vocabulary))
	idf := make([]float64, len(vocabulary))
	n := float64(len(docs))
	for i, term := range vocabulary {
		index[term] = i
		// smoothed idf = ln((1 + n) / (1 + df)) + 1
		idf[i] = math.Log((1+n)/(1+float64(docCounts[term]))) + 1
	}

	// 3. Weight and normalize every row
	rows := make([]Vector, len(docs))
	for i, tokens := range tokenized {
		tf := make(map[int]float64)
		for _, token := range tokens {
			if col, ok := index[token]; ok {
				tf[col]++
			}
		}
		rows[i] = newVector(tf, idf)
	}

	return &Space{
		Vocabulary: vocabulary,
		Rows:       rows,
		index:      index,
	}, nil
}

// selectVocabulary returns up to limit terms with the highest total count,
// ties broken alphabetically, sorted alphabetically.
func selectVocabulary(termCounts map[string]int, limit int) []string {
	terms := make([]string, 0, len(termCounts))
	for term := range termCounts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		ci, cj := termCounts[terms[i]], termCounts[terms[j]]
		if ci != cj {
			return ci > cj
		}
		return terms[i] < terms[j]
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	sort.Strings(terms)
	return terms
}

func newVector(tf map[int]float64, idf []float64) Vector {
	cols := make([]int, 0, len(tf))
	for col := range tf {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	vec := Vector{
		Indices: cols,
		Values:  make([]float64, len(cols)),
	}
	var norm float64
	for i, col := range cols {
		w := tf[col] * idf[col]
		vec.Values[i] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

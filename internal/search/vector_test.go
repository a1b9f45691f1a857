package search_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitematch/backend/internal/search"
)

func TestTokenize(t *testing.T) {
	text := "Hello, World! This is a test of CBT_2 and a 1-year program."
	tokens := search.Tokenize(text)

	assert.Equal(t, []string{"hello", "world", "test", "cbt_2", "year", "program"}, tokens)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, search.Tokenize(""))
	assert.Empty(t, search.Tokenize("the and of a"))
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, search.IsStopWord("the"))
	assert.True(t, search.IsStopWord("yourselves"))
	assert.False(t, search.IsStopWord("psychology"))
}

func TestTFIDFVectorizer_EmptyCorpus(t *testing.T) {
	_, err := search.NewTFIDFVectorizer(0).FitTransform(nil)
	assert.ErrorIs(t, err, search.ErrEmptyCorpus)
}

func TestTFIDFVectorizer(t *testing.T) {
	docs := []string{
		"apple banana",
		"apple orange",
	}

	space, err := search.NewTFIDFVectorizer(0).FitTransform(docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"apple", "banana", "orange"}, space.Vocabulary)
	require.Len(t, space.Rows, 2)

	// idf(apple) = ln(3/3) + 1 = 1, idf(banana) = ln(3/2) + 1
	banana := math.Log(1.5) + 1
	norm := math.Sqrt(1 + banana*banana)
	row := space.Rows[0]
	assert.Equal(t, []int{0, 1}, row.Indices)
	assert.InDelta(t, 1/norm, row.Values[0], 1e-9)
	assert.InDelta(t, banana/norm, row.Values[1], 1e-9)
}

func TestTFIDFVectorizer_RowsAreUnitLength(t *testing.T) {
	docs := []string{
		"clinical psychology adult outpatient",
		"clinical psychology child",
		"forensic psychology",
		"",
	}
	space, err := search.NewTFIDFVectorizer(0).FitTransform(docs)
	require.NoError(t, err)

	for i, row := range space.Rows[:3] {
		var sum float64
		for _, v := range row.Values {
			sum += v * v
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
	}
	assert.Empty(t, space.Rows[3].Indices)
}

func TestTFIDFVectorizer_MaxFeatures(t *testing.T) {
	docs := []string{
		"alpha alpha alpha beta beta gamma",
		"alpha beta delta",
	}
	space, err := search.NewTFIDFVectorizer(2).FitTransform(docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha", "beta"}, space.Vocabulary)
	assert.Equal(t, -1, space.Column("gamma"))
	assert.Equal(t, 1, space.Column("beta"))
}

func TestTFIDFVectorizer_MaxFeaturesTieBreak(t *testing.T) {
	var docs []string
	for i := 0; i < 10; i++ {
		docs = append(docs, fmt.Sprintf("term%02d", 9-i))
	}
	space, err := search.NewTFIDFVectorizer(3).FitTransform(docs)
	require.NoError(t, err)

	assert.Equal(t, []string{"term00", "term01", "term02"}, space.Vocabulary)
}

func TestCentroid(t *testing.T) {
	space, err := search.NewTFIDFVectorizer(0).FitTransform([]string{"apple", "banana"})
	require.NoError(t, err)

	centroid := space.Centroid([]int{0, 1})
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, centroid, 1e-9)
	assert.Equal(t, []float64{0, 0}, space.Centroid(nil))
}

func TestCosineSimilarity(t *testing.T) {
	dense := []float64{1, 0, 1}
	row := search.Vector{Indices: []int{1, 2}, Values: []float64{1, 1}}

	// dot = 1, |a| = sqrt(2), |b| = sqrt(2)
	assert.InDelta(t, 0.5, search.CosineSimilarity(dense, row), 1e-9)
	assert.Equal(t, 0.0, search.CosineSimilarity([]float64{0, 0, 0}, row))
	assert.Equal(t, 0.0, search.CosineSimilarity(dense, search.Vector{}))
}

func TestSimilarities(t *testing.T) {
	docs := []string{
		"clinical psychology adult",
		"clinical psychology child",
		"forensic psychology",
	}
	space, err := search.NewTFIDFVectorizer(0).FitTransform(docs)
	require.NoError(t, err)

	scores := space.Similarities(space.Centroid([]int{0}))
	require.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.Greater(t, scores[1], scores[2])
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

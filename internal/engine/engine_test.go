package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sitematch/backend/internal/config"
	"github.com/sitematch/backend/internal/corpus"
	"github.com/sitematch/backend/internal/engine"
	"github.com/sitematch/backend/internal/recommend"
)

// Mocks

type MockQueryLog struct {
	mock.Mock
}

func (m *MockQueryLog) Append(ctx context.Context, entry recommend.QueryLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockQueryLog) Entries(ctx context.Context) ([]recommend.QueryLogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]recommend.QueryLogEntry), args.Error(1)
}

func (m *MockQueryLog) Close() error {
	args := m.Called()
	return args.Error(0)
}

const sitesCSV = `APPIC Number,Site / Department,City,State,Country,Application Due Date,web_data,Clinical,Counseling,PhD,PsyD
1,Adult Clinic,Boston,MA,USA,Nov 1,clinical psychology adult,1,0,1,1
2,Child Clinic,Austin,TX,USA,Nov 2,clinical psychology child,1,0,1,1
3,Forensic Unit,Denver,CO,USA,Nov 3,forensic psychology,1,0,1,0
4,Court Clinic,Reno,NV,USA,Nov 4,forensic psychology court,1,0,1,1
5,Student Center,Provo,UT,USA,Nov 5,counseling students,0,1,1,1
`

func setupEngine(t *testing.T) (*engine.Engine, *MockQueryLog) {
	t.Helper()
	corp, err := corpus.Load(strings.NewReader(sitesCSV), "v1")
	require.NoError(t, err)

	cfg := config.Load()
	cfg.Recommend.Collaborative = true
	cfg.Recommend.CacheEnabled = true
	logger := logrus.New().WithField("test", "engine")
	qlog := new(MockQueryLog)

	eng, err := engine.NewEngine(cfg, logger, corp, qlog)
	require.NoError(t, err)
	return eng, qlog
}

func TestNewEngine(t *testing.T) {
	eng, _ := setupEngine(t)
	assert.NotNil(t, eng.Recommender)
	assert.NotNil(t, eng.Cache)

	_, err := engine.NewEngine(config.Load(), logrus.New().WithField("test", "engine"), nil, new(MockQueryLog))
	assert.Error(t, err)
}

func TestEngine_Recommend(t *testing.T) {
	eng, qlog := setupEngine(t)
	qlog.On("Append", mock.Anything, mock.MatchedBy(func(e recommend.QueryLogEntry) bool {
		return e.ID != "" && e.Program == "Clinical" && e.Degree == "PhD" && len(e.Favorites) == 1
	})).Return(nil)
	qlog.On("Entries", mock.Anything).Return([]recommend.QueryLogEntry{
		{Favorites: []int{1, 3}},
		{Favorites: []int{1, 3}},
		{Favorites: []int{1, 5}},
	}, nil)

	results, err := eng.Recommend(context.Background(), engine.Query{
		Favorites: []int{1},
		Program:   "Clinical",
		Degree:    "PhD",
	})
	require.NoError(t, err)

	// 5 is not in the Clinical subset, so only 3 is suggested collaboratively
	require.NotEmpty(t, results)
	assert.Equal(t, 3, results[0].ID)
	assert.True(t, results[0].Score.Collaborative)
	assert.Equal(t, 2, results[1].ID)
	assert.False(t, results[1].Score.Collaborative)
	for _, r := range results {
		assert.NotEqual(t, 1, r.ID)
		assert.NotEqual(t, 5, r.ID)
	}

	qlog.AssertExpectations(t)
	assert.Equal(t, int64(1), eng.Stats().Requests)
}

func TestEngine_ContentOnly(t *testing.T) {
	eng, qlog := setupEngine(t)
	qlog.On("Append", mock.Anything, mock.Anything).Return(nil)

	off := false
	results, err := eng.Recommend(context.Background(), engine.Query{
		Favorites:     []int{1},
		Program:       "Clinical",
		Degree:        "PsyD",
		Collaborative: &off,
		Limit:         1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].ID)

	qlog.AssertNotCalled(t, "Entries", mock.Anything)
}

func TestEngine_AppendFailureIsNotFatal(t *testing.T) {
	eng, qlog := setupEngine(t)
	qlog.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	qlog.On("Entries", mock.Anything).Return(nil, nil)

	results, err := eng.Recommend(context.Background(), engine.Query{
		Favorites: []int{1}, Program: "Clinical", Degree: "PhD",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestEngine_Errors(t *testing.T) {
	eng, qlog := setupEngine(t)
	qlog.On("Append", mock.Anything, mock.Anything).Return(nil)
	qlog.On("Entries", mock.Anything).Return(nil, nil)
	ctx := context.Background()

	_, err := eng.Recommend(ctx, engine.Query{Favorites: []int{1}, Program: "Surgery", Degree: "PhD"})
	assert.ErrorIs(t, err, corpus.ErrUnknownCategory)

	_, err = eng.Recommend(ctx, engine.Query{Favorites: []int{1}, Program: "Counseling", Degree: "Clinical"})
	assert.ErrorIs(t, err, recommend.ErrEmptyCorpus)

	_, err = eng.Recommend(ctx, engine.Query{Favorites: []int{999}, Program: "Clinical", Degree: "PhD"})
	assert.ErrorIs(t, err, recommend.ErrNoMatch)

	stats := eng.Stats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, int64(3), stats.Failures)
}

func TestEngine_LogReadFailure(t *testing.T) {
	eng, qlog := setupEngine(t)
	qlog.On("Append", mock.Anything, mock.Anything).Return(nil)
	qlog.On("Entries", mock.Anything).Return(nil, errors.New("locked"))

	_, err := eng.Recommend(context.Background(), engine.Query{
		Favorites: []int{1}, Program: "Clinical", Degree: "PhD",
	})
	assert.Error(t, err)
}

package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitematch/backend/internal/fetcher"
)

const samplePage = `<html>
<head><title> Counseling  Center </title><style>body { color: red; }</style></head>
<body>
  <script>var tracking = "ignored";</script>
  <h1>Doctoral   Internship</h1>
  <p>Training in <b>trauma</b> and
     group therapy.</p>
  <noscript>Enable javascript</noscript>
</body>
</html>`

func TestFetcher_Fetch(t *testing.T) {
	var userAgent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(samplePage))
	}))
	defer ts.Close()

	f := fetcher.NewFetcher(5*time.Second, "TestEnricher/1.0")
	page, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, ts.URL, page.URL)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "Counseling Center", page.Title)
	assert.Equal(t, "Doctoral Internship Training in trauma and group therapy.", page.Text)
	assert.NotContains(t, page.Text, "tracking")
	assert.NotContains(t, page.Text, "color")
	assert.NotContains(t, page.Text, "javascript")
	assert.Equal(t, "TestEnricher/1.0", userAgent)
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	f := fetcher.NewFetcher(5*time.Second, "TestEnricher/1.0")
	page, err := f.Fetch(context.Background(), ts.URL)
	assert.Error(t, err)
	require.NotNil(t, page)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
}

func TestFetcher_Fetch_Canceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>late</p>"))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := fetcher.NewFetcher(5*time.Second, "TestEnricher/1.0")
	_, err := f.Fetch(ctx, ts.URL)
	assert.Error(t, err)
}

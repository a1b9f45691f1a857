package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxPageBytes caps how much of a page body is parsed.
const maxPageBytes = 2 << 20

// Page is the visible text of a site page.
type Page struct {
	URL        string
	Title      string
	Text       string
	StatusCode int
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Fetch downloads a page and extracts its visible text
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	page := &Page{
		URL:        url,
		StatusCode: resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return page, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	if err := extractText(io.LimitReader(resp.Body, maxPageBytes), page); err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}
	return page, nil
}

// extractText walks the token stream collecting text outside of
// script, style, noscript and template elements.
func extractText(body io.Reader, page *Page) error {
	tokenizer := html.NewTokenizer(body)
	var text strings.Builder
	skipDepth := 0
	inTitle := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				page.Text = cleanText(text.String())
				page.Title = cleanText(page.Title)
				return nil
			}
			return tokenizer.Err()

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript", "template":
				skipDepth++
			case "title":
				inTitle = true
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style", "noscript", "template":
				if skipDepth > 0 {
					skipDepth--
				}
			case "title":
				inTitle = false
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			data := string(tokenizer.Text())
			if inTitle {
				page.Title += data
				continue
			}
			if trimmed := strings.TrimSpace(data); trimmed != "" {
				text.WriteString(trimmed)
				text.WriteByte(' ')
			}
		}
	}
}

// cleanText collapses runs of whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

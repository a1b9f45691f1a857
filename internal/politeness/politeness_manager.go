package politeness

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sitematch/backend/internal/config"
)

// PolitenessManager enforces robots.txt rules and a minimum delay between
// requests to the same host.
type PolitenessManager struct {
	config  config.EnrichConfig
	logger  *logrus.Entry
	client  *http.Client
	robots  singleflight.Group
	mu      sync.Mutex
	cache   map[string]*robotstxt.RobotsData
	limiter map[string]*rate.Limiter

	statsMu sync.Mutex
	stats   Statistics
}

// Statistics holds politeness manager counters
type Statistics struct {
	AllowedRequests  int64         `json:"allowed_requests"`
	RejectedRequests int64         `json:"rejected_requests"`
	RobotsFetches    int64         `json:"robots_fetches"`
	TotalWait        time.Duration `json:"total_wait"`
}

func NewPolitenessManager(cfg config.EnrichConfig, logger *logrus.Entry) *PolitenessManager {
	if logger == nil {
		logger = logrus.WithField("component", "politeness_manager")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PolitenessManager{
		config:  cfg,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
		cache:   make(map[string]*robotstxt.RobotsData),
		limiter: make(map[string]*rate.Limiter),
	}
}

// IsURLAllowed checks the URL against its host's robots.txt. A robots.txt
// that cannot be fetched allows the request.
func (pm *PolitenessManager) IsURLAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := parseHTTPURL(rawURL)
	if err != nil {
		return false, err
	}
	if !pm.config.EnableRobotsCheck {
		pm.count(true)
		return true, nil
	}

	robots, err := pm.getRobotsData(ctx, parsed)
	if err != nil {
		pm.logger.WithError(err).WithField("domain", parsed.Host).Warn("Failed to get robots.txt, allowing request")
		pm.count(true)
		return true, nil
	}

	allowed := true
	if robots != nil {
		if group := robots.FindGroup(pm.config.UserAgent); group != nil {
			path := parsed.EscapedPath()
			if path == "" {
				path = "/"
			}
			allowed = group.Test(path)
		}
	}
	pm.count(allowed)
	return allowed, nil
}

// Wait blocks until a request to the URL's host respects the minimum delay.
func (pm *PolitenessManager) Wait(ctx context.Context, rawURL string) error {
	parsed, err := parseHTTPURL(rawURL)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := pm.hostLimiter(parsed.Host).Wait(ctx); err != nil {
		return err
	}
	if waited := time.Since(start); waited > time.Millisecond {
		pm.logger.WithFields(logrus.Fields{
			"domain":    parsed.Host,
			"wait_time": waited,
		}).Debug("Waited for politeness delay")
		pm.statsMu.Lock()
		pm.stats.TotalWait += waited
		pm.statsMu.Unlock()
	}
	return nil
}

// GetStatistics returns a copy of the counters
func (pm *PolitenessManager) GetStatistics() Statistics {
	pm.statsMu.Lock()
	defer pm.statsMu.Unlock()
	return pm.stats
}

// GetDomainStateCount returns the number of hosts seen so far.
func (pm *PolitenessManager) GetDomainStateCount() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.limiter)
}

func (pm *PolitenessManager) hostLimiter(host string) *rate.Limiter {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if l, ok := pm.limiter[host]; ok {
		return l
	}
	limit := rate.Inf
	if pm.config.MinDelay > 0 {
		limit = rate.Every(pm.config.MinDelay)
	}
	l := rate.NewLimiter(limit, 1)
	pm.limiter[host] = l
	pm.logger.WithField("domain", host).Debug("Created new domain state")
	return l
}

// getRobotsData fetches robots.txt once per scheme and host. Concurrent
// callers for the same host share one fetch.
func (pm *PolitenessManager) getRobotsData(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := u.Scheme + "://" + u.Host

	pm.mu.Lock()
	robots, ok := pm.cache[key]
	pm.mu.Unlock()
	if ok {
		return robots, nil
	}

	v, err, _ := pm.robots.Do(key, func() (interface{}, error) {
		pm.mu.Lock()
		cached, ok := pm.cache[key]
		pm.mu.Unlock()
		if ok {
			return cached, nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
		}
		req.Header.Set("User-Agent", pm.config.UserAgent)

		resp, err := pm.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
		}
		defer resp.Body.Close()

		pm.statsMu.Lock()
		pm.stats.RobotsFetches++
		pm.statsMu.Unlock()

		// 4xx allows everything, 5xx disallows everything.
		data, err := robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
		}

		pm.mu.Lock()
		pm.cache[key] = data
		pm.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*robotstxt.RobotsData), nil
}

func (pm *PolitenessManager) count(allowed bool) {
	pm.statsMu.Lock()
	defer pm.statsMu.Unlock()
	if allowed {
		pm.stats.AllowedRequests++
	} else {
		pm.stats.RejectedRequests++
	}
}

func parseHTTPURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("URL must have a host: %s", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("only HTTP/HTTPS URLs are supported: %s", rawURL)
	}
	return parsed, nil
}

package remote

import (
	"fmt"
	"net/http"

	"github.com/bassista/go_relboard/internal/config"
	"github.com/bassista/go_relboard/internal/logger"
	"golang.org/x/time/rate"
)

// NewClientFromConfig creates the Client selected by store.backend.
// The gist backend degrades to a fail-fast client when the token or gist ID
// is missing, so the process still starts and serves defaults.
func NewClientFromConfig(cfg config.StoreConfig, limiter *rate.Limiter) (Client, error) {
	switch cfg.Backend {
	case config.BackendGist, "":
		if cfg.Token == "" || cfg.GistID == "" {
			logger.WithComponent("remote").Warn("GITHUB_ACCESS_TOKEN or GIST_ID not set; remote document access will fail")
			return unavailableClient{reason: "gist credentials are not configured"}, nil
		}
		opts := []Option{
			WithToken(cfg.Token),
			WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		}
		if cfg.APIBaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.APIBaseURL))
		}
		if limiter != nil {
			opts = append(opts, WithLimiter(limiter))
		}
		return NewGistClient(cfg.GistID, opts...)
	case config.BackendDir:
		return NewDirClient(cfg.DirPath)
	case config.BackendMemory:
		return NewMemoryClient(nil), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: %s, %s, %s)", cfg.Backend, config.BackendGist, config.BackendDir, config.BackendMemory)
	}
}

// NewLimiterFromConfig converts requests-per-minute into a token bucket.
func NewLimiterFromConfig(cfg config.StoreConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.Burst)
}

// NewReleaseSourceFromConfig creates the GitHub release source used by the
// poller. It shares the store's limiter and API base URL; the token is optional.
func NewReleaseSourceFromConfig(store config.StoreConfig, poller config.PollerConfig, limiter *rate.Limiter) (*GitHubReleases, error) {
	opts := []Option{WithHTTPClient(&http.Client{Timeout: store.HTTPTimeout})}
	if poller.Token != "" {
		opts = append(opts, WithToken(poller.Token))
	}
	if store.APIBaseURL != "" {
		opts = append(opts, WithBaseURL(store.APIBaseURL))
	}
	if limiter != nil {
		opts = append(opts, WithLimiter(limiter))
	}
	return NewGitHubReleases(opts...)
}

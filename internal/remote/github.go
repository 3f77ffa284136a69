package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v67/github"
	"golang.org/x/time/rate"
)

// options shared by the go-github backed clients.
type options struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a go-github backed client.
type Option func(*options) error

// WithToken sets the personal access token used for every request.
func WithToken(token string) Option {
	return func(o *options) error {
		if token == "" {
			return errors.New("token cannot be empty")
		}
		o.token = token
		return nil
	}
}

// WithBaseURL points the client at another API root (GitHub Enterprise, tests).
func WithBaseURL(baseURL string) Option {
	return func(o *options) error {
		if baseURL == "" {
			return errors.New("base URL cannot be empty")
		}
		o.baseURL = baseURL
		return nil
	}
}

// WithHTTPClient sets the HTTP client, typically to bound request time.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		o.httpClient = c
		return nil
	}
}

// WithLimiter throttles outgoing requests. Clients sharing a token should
// share the limiter as they share GitHub's budget.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *options) error {
		o.limiter = l
		return nil
	}
}

func newGitHubClient(opts []Option) (*github.Client, *rate.Limiter, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, nil, err
		}
	}

	client := github.NewClient(o.httpClient)
	if o.token != "" {
		client = client.WithAuthToken(o.token)
	}
	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, nil, fmt.Errorf("parse base URL: %w", err)
		}
		client.BaseURL = u
	}
	return client, o.limiter, nil
}

// wait blocks on the limiter, if any.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %w", ErrUnavailable, err)
	}
	return nil
}

// wrapGitHubError classifies a go-github failure as ErrUnavailable, keeping
// the HTTP status in the message when there is one.
func wrapGitHubError(err error, resp *github.Response, action string) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %s: rate limited until %s: %w", ErrUnavailable, action, rateErr.Rate.Reset.Time, err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %s: secondary rate limit: %w", ErrUnavailable, action, err)
	}
	if resp != nil && resp.Response != nil {
		return fmt.Errorf("%w: %s: status %d: %w", ErrUnavailable, action, resp.StatusCode, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, action, err)
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bassista/go_relboard/internal/cache"
	"github.com/bassista/go_relboard/internal/logger"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/cenkalti/backoff/v5"
)

const (
	containerKey = "container"

	DefaultCacheTTL    = 30 * time.Second
	DefaultFallbackTTL = 24 * time.Hour
)

func fileKey(name string) string { return "file:" + name }

// Documents loads and saves whole named JSON documents in the remote
// container. Reads go through the TTL cache and degrade to the last known
// good copy of a file; writes go through the WriteSerializer and are never
// absorbed.
type Documents struct {
	client      remote.Client
	cache       *cache.TTLCache
	writes      *WriteSerializer
	ttl         time.Duration
	fallbackTTL time.Duration
	now         func() time.Time

	mu      sync.Mutex
	backoff backoff.BackOff
	retryAt time.Time
	// gen changes on every write and invalidation; a fetch that started under
	// an older generation must not repopulate the container entry.
	gen uint64
}

// DocumentsOption configures Documents.
type DocumentsOption func(*Documents)

// WithCacheTTL sets how long a fetched container is served without refetching.
func WithCacheTTL(ttl time.Duration) DocumentsOption {
	return func(d *Documents) { d.ttl = ttl }
}

// WithFallbackTTL sets how long per-file copies remain usable when the
// remote store cannot be read.
func WithFallbackTTL(ttl time.Duration) DocumentsOption {
	return func(d *Documents) { d.fallbackTTL = ttl }
}

// WithReadBackOff replaces the policy deciding how long reads stay away from
// the remote store after a failed fetch.
func WithReadBackOff(b backoff.BackOff) DocumentsOption {
	return func(d *Documents) { d.backoff = b }
}

// WithDocumentsClock replaces the time source, for tests.
func WithDocumentsClock(now func() time.Time) DocumentsOption {
	return func(d *Documents) { d.now = now }
}

// NewDocuments composes a remote client, the process cache and the process
// write serializer.
func NewDocuments(client remote.Client, c *cache.TTLCache, writes *WriteSerializer, opts ...DocumentsOption) *Documents {
	d := &Documents{
		client:      client,
		cache:       c,
		writes:      writes,
		ttl:         DefaultCacheTTL,
		fallbackTTL: DefaultFallbackTTL,
		now:         time.Now,
		backoff:     defaultReadBackOff(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.backoff.Reset()
	return d
}

func defaultReadBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxInterval = 5 * time.Minute
	return b
}

// LoadDocument returns the raw JSON of a named file. It returns
// ErrDocumentMissing when the file does not exist, is empty or is not valid
// JSON. When the store is unreachable and no earlier copy is known the error
// matches both ErrDocumentMissing and ErrRemoteUnavailable, so readers can
// fall back to defaults while writers know the stored value is unknown.
func (d *Documents) LoadDocument(ctx context.Context, name string) (json.RawMessage, error) {
	log := logger.WithDocument("documents", name)

	container, err := d.container(ctx)
	if err != nil {
		raw, ok := d.fallback(name)
		if !ok {
			log.Warnf("remote read failed and no cached copy exists: %v", err)
			if !errors.Is(err, ErrRemoteUnavailable) {
				err = fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrDocumentMissing, name, err)
		}
		log.Warnf("remote read failed, serving last known copy: %v", err)
		return raw, nil
	}

	raw, err := extract(container, name)
	if err != nil {
		log.Debugf("document not available: %v", err)
		return nil, err
	}
	return raw, nil
}

// SaveDocument writes value as the named file. The patch runs on the write
// serializer; on success the container entry is dropped so the next read
// refetches, and the per-file copy is seeded with what was written.
func (d *Documents) SaveDocument(ctx context.Context, name string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	err = d.writes.Do(ctx, func(ctx context.Context) error {
		if err := d.client.PatchFile(ctx, name, string(payload)); err != nil {
			return err
		}
		d.mu.Lock()
		d.gen++
		d.mu.Unlock()
		d.cache.Delete(containerKey)
		d.cache.Set(fileKey(name), json.RawMessage(payload), d.fallbackTTL)
		return nil
	})
	if err != nil {
		logger.WithDocument("documents", name).Errorf("save failed: %v", err)
		return fmt.Errorf("save %s: %w", name, err)
	}
	logger.WithDocument("documents", name).Debugf("saved %d bytes", len(payload))
	return nil
}

// Invalidate drops the cached container so the next read refetches it.
func (d *Documents) Invalidate() {
	d.mu.Lock()
	d.gen++
	d.mu.Unlock()
	d.cache.Delete(containerKey)
}

// container returns the cached container or fetches it.
func (d *Documents) container(ctx context.Context) (remote.Container, error) {
	if v, ok := d.cache.Get(containerKey); ok {
		if c, ok := v.(remote.Container); ok {
			return c, nil
		}
		logger.WithComponent("documents").Errorf("%v: unexpected %T under %q", ErrCacheUnavailable, v, containerKey)
		d.cache.Delete(containerKey)
	}

	d.mu.Lock()
	if now := d.now(); now.Before(d.retryAt) {
		retryAt := d.retryAt
		d.mu.Unlock()
		return remote.Container{}, fmt.Errorf("%w: backing off until %s", ErrRemoteUnavailable, retryAt.Format(time.RFC3339))
	}
	gen := d.gen
	d.mu.Unlock()

	c, err := d.client.ReadContainer(ctx)
	if err != nil {
		d.mu.Lock()
		wait := d.backoff.NextBackOff()
		d.retryAt = d.now().Add(wait)
		d.mu.Unlock()
		logger.WithComponent("documents").Warnf("container fetch failed, next attempt in %s: %v", wait, err)
		return remote.Container{}, err
	}

	d.mu.Lock()
	d.backoff.Reset()
	d.retryAt = time.Time{}
	current := d.gen == gen
	d.mu.Unlock()

	if !current {
		// A write landed while fetching; c may predate it.
		return c, nil
	}
	d.cache.Set(containerKey, c, d.ttl)
	for _, name := range c.Names() {
		if raw, err := extract(c, name); err == nil {
			d.cache.Set(fileKey(name), raw, d.fallbackTTL)
		}
	}
	return c, nil
}

func (d *Documents) fallback(name string) (json.RawMessage, bool) {
	v, ok := d.cache.Get(fileKey(name))
	if !ok {
		return nil, false
	}
	raw, ok := v.(json.RawMessage)
	if !ok {
		logger.WithDocument("documents", name).Errorf("%v: unexpected %T in file entry", ErrCacheUnavailable, v)
		return nil, false
	}
	return append(json.RawMessage(nil), raw...), true
}

func extract(c remote.Container, name string) (json.RawMessage, error) {
	content, ok := c.File(name)
	if !ok || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, name)
	}
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrDocumentMissing, name)
	}
	return json.RawMessage(content), nil
}

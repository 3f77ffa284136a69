package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bassista/go_relboard/internal/logger"
	"github.com/bassista/go_relboard/internal/storage"
)

// DefaultRefreshWindow is how long a snapshot is served before the store asks
// the facade again.
const DefaultRefreshWindow = 500 * time.Millisecond

// DocumentStore is the facade the typed stores persist through.
type DocumentStore interface {
	LoadDocument(ctx context.Context, name string) (json.RawMessage, error)
	SaveDocument(ctx context.Context, name string, value any) error
}

type storeOptions struct {
	mode   Mode
	window time.Duration
	now    func() time.Time
}

// StoreOption configures a typed store.
type StoreOption func(*storeOptions)

// WithMode selects live or offline operation.
func WithMode(m Mode) StoreOption {
	return func(o *storeOptions) { o.mode = m }
}

// WithRefreshWindow sets how long a snapshot is reused without reloading.
func WithRefreshWindow(d time.Duration) StoreOption {
	return func(o *storeOptions) { o.window = d }
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) { o.now = now }
}

func buildOptions(opts []StoreOption) storeOptions {
	o := storeOptions{mode: ModeLive, window: DefaultRefreshWindow, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// documentStore keeps a defaulted snapshot of one named document.
type documentStore[T any] struct {
	docs      DocumentStore
	name      string
	label     string
	defaults  func() T
	reconcile func(T) T
	validate  func(T) error
	storeOptions

	// refreshMu lets one goroutine reload while the others wait for its result.
	refreshMu sync.Mutex
	// writeMu orders saves and read-modify-save edits of this document.
	writeMu sync.Mutex

	mu        sync.Mutex
	snapshot  *T
	checkedAt time.Time
	gen       uint64
}

func newDocumentStore[T any](docs DocumentStore, name, label string, defaults func() T, reconcile func(T) T, validate func(T) error, opts []StoreOption) *documentStore[T] {
	return &documentStore[T]{
		docs:         docs,
		name:         name,
		label:        label,
		defaults:     defaults,
		reconcile:    reconcile,
		validate:     validate,
		storeOptions: buildOptions(opts),
	}
}

// Get returns an independent copy of the current document. When the stored
// document cannot be read, defaults are returned.
func (s *documentStore[T]) Get(ctx context.Context) T {
	v, _ := s.read(ctx)
	return v
}

// read is Get that also reports whether the value stands in for a document
// that could not be read. Such values are never cached.
func (s *documentStore[T]) read(ctx context.Context) (T, error) {
	if v, ok := s.fresh(); ok {
		return s.copyOut(v), nil
	}
	if s.mode == ModeOfflineDefaults {
		return s.reconcile(s.defaults()), nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if v, ok := s.fresh(); ok {
		return s.copyOut(v), nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	loaded, err := s.load(ctx)
	if err != nil {
		return loaded, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen && s.snapshot != nil {
		// A save landed during the load and holds newer data.
		return s.copyOut(*s.snapshot), nil
	}
	s.snapshot = &loaded
	s.checkedAt = s.now()
	return s.copyOut(loaded), nil
}

// Save reconciles, validates and persists v. The snapshot is replaced only
// once the write succeeded.
func (s *documentStore[T]) Save(ctx context.Context, v T) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.save(ctx, v)
}

// edit applies fn to the current document and saves the result, with no
// other save of this document in between. It refuses to run when the stored
// document could not be read.
func (s *documentStore[T]) edit(ctx context.Context, fn func(T) (T, error)) (T, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.read(ctx)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("could not save %s: %w", s.label, err)
	}
	next, err := fn(current)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := s.save(ctx, next); err != nil {
		var zero T
		return zero, err
	}
	return s.Get(ctx), nil
}

func (s *documentStore[T]) save(ctx context.Context, v T) error {
	v = s.reconcile(v)
	if s.validate != nil {
		if err := s.validate(v); err != nil {
			return fmt.Errorf("could not save %s: %w: %w", s.label, ErrInvalid, err)
		}
	}

	log := logger.WithDocument("repository", s.name)
	if s.mode == ModeLive {
		if err := s.docs.SaveDocument(ctx, s.name, v); err != nil {
			log.Errorf("could not save %s: %v", s.label, err)
			return fmt.Errorf("could not save %s: %w", s.label, err)
		}
	}

	snap, err := cloneJSON(v)
	if err != nil {
		s.ClearCache()
		log.Errorf("%s saved but snapshot could not be rebuilt: %v", s.label, err)
		return fmt.Errorf("could not save %s: %w: %v", s.label, storage.ErrPersistenceFailed, err)
	}

	s.mu.Lock()
	s.snapshot = &snap
	s.checkedAt = s.now()
	s.gen++
	s.mu.Unlock()
	return nil
}

// ClearCache drops the snapshot so the next Get reloads.
func (s *documentStore[T]) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.checkedAt = time.Time{}
	s.gen++
}

// fresh reports the snapshot if it may be served without reloading. Offline
// snapshots never go stale.
func (s *documentStore[T]) fresh() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		var zero T
		return zero, false
	}
	if s.mode == ModeOfflineDefaults || s.now().Sub(s.checkedAt) < s.window {
		return *s.snapshot, true
	}
	var zero T
	return zero, false
}

// load reads the stored document. An absent or malformed document yields
// defaults with no error; an unreadable store yields defaults and an error
// matching storage.ErrRemoteUnavailable.
func (s *documentStore[T]) load(ctx context.Context) (T, error) {
	log := logger.WithDocument("repository", s.name)

	raw, err := s.docs.LoadDocument(ctx, s.name)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrRemoteUnavailable):
		log.Warnf("load %s: %v", s.label, err)
		return s.reconcile(s.defaults()), fmt.Errorf("load %s: %w", s.label, err)
	case errors.Is(err, storage.ErrDocumentMissing):
		log.Debugf("%s not stored yet, using defaults", s.label)
		return s.reconcile(s.defaults()), nil
	default:
		log.Warnf("load %s: %v", s.label, err)
		return s.reconcile(s.defaults()), fmt.Errorf("load %s: %w: %w", s.label, storage.ErrRemoteUnavailable, err)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warnf("%s has an unexpected shape, using defaults: %v", s.label, err)
		return s.reconcile(s.defaults()), nil
	}
	return s.reconcile(v), nil
}

func (s *documentStore[T]) copyOut(v T) T {
	out, err := cloneJSON(v)
	if err != nil {
		logger.WithDocument("repository", s.name).Errorf("copy %s snapshot: %v", s.label, err)
		return s.reconcile(s.defaults())
	}
	return out
}

// cloneJSON deep-copies v through its JSON form.
func cloneJSON[T any](v T) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}
	return out, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrRepositoryNotFound is returned when an id matches no tracked repository.
var ErrRepositoryNotFound = errors.New("repository not found")

// RepositoryListStore owns repositories.json.
type RepositoryListStore struct {
	store *documentStore[[]TrackedRepository]
}

// NewRepositoryListStore returns a store persisting through docs.
func NewRepositoryListStore(docs DocumentStore, opts ...StoreOption) *RepositoryListStore {
	return &RepositoryListStore{
		store: newDocumentStore(docs, RepositoriesDocument, "repositories",
			func() []TrackedRepository { return []TrackedRepository{} },
			reconcileRepositories, validateRepositories, opts),
	}
}

// Get returns the tracked repositories in stored order.
func (s *RepositoryListStore) Get(ctx context.Context) []TrackedRepository {
	return s.store.Get(ctx)
}

// Save replaces the whole list.
func (s *RepositoryListStore) Save(ctx context.Context, repos []TrackedRepository) error {
	return s.store.Save(ctx, repos)
}

// Update applies fn to the current list and saves what it returns.
func (s *RepositoryListStore) Update(ctx context.Context, fn func([]TrackedRepository) ([]TrackedRepository, error)) ([]TrackedRepository, error) {
	return s.store.edit(ctx, fn)
}

// Upsert replaces the repository with the same id, or appends it.
func (s *RepositoryListStore) Upsert(ctx context.Context, repo TrackedRepository) ([]TrackedRepository, error) {
	normalized := reconcileRepositories([]TrackedRepository{repo})[0]
	if err := validateRepository(normalized); err != nil {
		return nil, fmt.Errorf("could not save repositories: %w: %w", ErrInvalid, err)
	}
	return s.Update(ctx, func(repos []TrackedRepository) ([]TrackedRepository, error) {
		if i := indexOf(repos, normalized.ID); i >= 0 {
			repos[i] = normalized
			return repos, nil
		}
		return append(repos, normalized), nil
	})
}

// Remove drops the repository with the given id.
func (s *RepositoryListStore) Remove(ctx context.Context, id string) ([]TrackedRepository, error) {
	return s.Update(ctx, func(repos []TrackedRepository) ([]TrackedRepository, error) {
		i := indexOf(repos, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, id)
		}
		return slices.Delete(repos, i, i+1), nil
	})
}

// Acknowledge clears the new-release marker of a repository and remembers
// its latest release as seen.
func (s *RepositoryListStore) Acknowledge(ctx context.Context, id string) (TrackedRepository, error) {
	var acked TrackedRepository
	_, err := s.Update(ctx, func(repos []TrackedRepository) ([]TrackedRepository, error) {
		i := indexOf(repos, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, id)
		}
		repos[i].IsNew = false
		if repos[i].LatestRelease != nil {
			repos[i].LastSeenReleaseTag = repos[i].LatestRelease.Tag
		}
		acked = repos[i]
		return repos, nil
	})
	return acked, err
}

// ClearCache forgets the local snapshot.
func (s *RepositoryListStore) ClearCache() {
	s.store.ClearCache()
}

func indexOf(repos []TrackedRepository, id string) int {
	return slices.IndexFunc(repos, func(r TrackedRepository) bool { return r.ID == id })
}

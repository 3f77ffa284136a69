package controller

import (
	"context"
	"errors"

	"github.com/bassista/go_relboard/internal/repository"
)

// RepositoryCrudService implements CrudService for tracked repositories.
type RepositoryCrudService struct {
	Store *repository.RepositoryListStore
}

func (s *RepositoryCrudService) All(ctx context.Context) ([]repository.TrackedRepository, error) {
	return s.Store.Get(ctx), nil
}

func (s *RepositoryCrudService) Add(ctx context.Context, item repository.TrackedRepository) ([]repository.TrackedRepository, error) {
	return s.Store.Upsert(ctx, item)
}

func (s *RepositoryCrudService) Remove(ctx context.Context, id string) ([]repository.TrackedRepository, error) {
	return s.Store.Remove(ctx, id)
}

// RepositoryCrudValidator rejects payloads whose URL does not name a repository.
type RepositoryCrudValidator struct{}

func (RepositoryCrudValidator) Validate(item repository.TrackedRepository) error {
	if item.URL == "" {
		return errors.New("url is required")
	}
	_, _, err := repository.ParseRepositoryURL(item.URL)
	return err
}

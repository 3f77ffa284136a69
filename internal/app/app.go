package app

import (
	"context"
	"errors"

	"github.com/bassista/go_relboard/internal/cache"
	"github.com/bassista/go_relboard/internal/config"
	"github.com/bassista/go_relboard/internal/logger"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/repository"
	"github.com/bassista/go_relboard/internal/scheduler"
	"github.com/bassista/go_relboard/internal/storage"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
type App struct {
	Config       *config.Config
	Client       remote.Client
	Cache        *cache.TTLCache
	Writes       *storage.WriteSerializer
	Documents    *storage.Documents
	Settings     *repository.SettingsStore
	Repositories *repository.RepositoryListStore
	Status       *repository.StatusStore
	Poller       *scheduler.ReleasePoller

	BaseCtx context.Context
	Cancel  context.CancelFunc
}

// New builds the storage stack over client. One cache and one write
// serializer are shared by every store of the process. source may be nil when
// polling is disabled.
func New(cfg *config.Config, client remote.Client, source scheduler.ReleaseSource) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if client == nil {
		return nil, errors.New("remote client is nil")
	}
	if cfg.Poller.Enabled && source == nil {
		return nil, errors.New("release source is nil")
	}

	mode, err := repository.ParseMode(cfg.Store.Mode)
	if err != nil {
		return nil, err
	}

	ttlCache := cache.NewTTLCache()
	writes := storage.NewWriteSerializer()
	docs := storage.NewDocuments(client, ttlCache, writes,
		storage.WithCacheTTL(cfg.Store.CacheTTL),
		storage.WithFallbackTTL(cfg.Store.FallbackTTL),
	)
	storeOpts := []repository.StoreOption{
		repository.WithMode(mode),
		repository.WithRefreshWindow(cfg.Store.SnapshotWindow),
	}

	a := &App{
		Config:       cfg,
		Client:       client,
		Cache:        ttlCache,
		Writes:       writes,
		Documents:    docs,
		Settings:     repository.NewSettingsStore(docs, storeOpts...),
		Repositories: repository.NewRepositoryListStore(docs, storeOpts...),
		Status:       repository.NewStatusStore(),
	}
	if source != nil {
		a.Poller = scheduler.NewReleasePoller(source, a.Settings, a.Repositories, a.Status,
			cfg.Poller.InitialDelay, cfg.Poller.SelfRepo)
	}

	a.BaseCtx, a.Cancel = context.WithCancel(context.Background())
	logger.WithComponent("app").Debugf("storage stack ready (mode=%s)", mode)
	return a, nil
}

// Shutdown stops background work and drains pending writes.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.Writes != nil {
		a.Writes.Close()
	}
}

// StartWatchers starts the cache sweeper, the directory watcher when the
// store is a local directory, and the release poller when enabled.
func (a *App) StartWatchers() error {
	cache.StartSweepScheduler(a.BaseCtx, a.Cache, a.Config.Store.SweepInterval)

	if w, ok := a.Client.(*remote.DirClient); ok {
		err := w.Watch(a.BaseCtx, func(name string) {
			logger.WithDocument("watcher", name).Info("document changed on disk, dropping cached container")
			a.Documents.Invalidate()
		})
		if err != nil {
			return err
		}
	}

	if a.Config.Poller.Enabled && a.Poller != nil {
		if a.Config.Store.Mode == config.ModeOffline {
			logger.WithComponent("app").Info("offline mode, release poller not started")
			return nil
		}
		a.Poller.Start(a.BaseCtx)
	}
	return nil
}

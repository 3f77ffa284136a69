package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bassista/go_relboard/internal/logger"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ReleaseSource lists the releases of a repository, newest first.
type ReleaseSource interface {
	ListReleases(ctx context.Context, owner, repo string, perPage int) ([]remote.Release, error)
}

// SettingsReader provides the current settings.
type SettingsReader interface {
	Get(ctx context.Context) repository.AppSettings
}

// RepositoryList is the part of the repository store the poller writes through.
type RepositoryList interface {
	Get(ctx context.Context) []repository.TrackedRepository
	Update(ctx context.Context, fn func([]repository.TrackedRepository) ([]repository.TrackedRepository, error)) ([]repository.TrackedRepository, error)
}

// StatusUpdater records the outcome of a poll.
type StatusUpdater interface {
	Update(ctx context.Context, fn func(repository.SystemStatus) repository.SystemStatus) repository.SystemStatus
}

var errUnchanged = errors.New("no release changes")

// ReleasePoller checks every tracked repository for new releases on the
// interval configured in settings.
//
// Each cycle:
// - lists releases with at most parallelRepoFetches requests in flight,
// - keeps the newest release allowed by the channel and regex filters,
// - saves the repository list once if any latestRelease changed,
// - records the check time and any errors in the status store.
type ReleasePoller struct {
	source       ReleaseSource
	settings     SettingsReader
	repos        RepositoryList
	status       StatusUpdater
	initialDelay time.Duration
	selfRepo     string
	now          func() time.Time

	running sync.Mutex
}

// NewReleasePoller wires the poller. selfRepo ("owner/name") is optional;
// when set its newest stable release becomes the latest known version.
func NewReleasePoller(source ReleaseSource, settings SettingsReader, repos RepositoryList, status StatusUpdater, initialDelay time.Duration, selfRepo string) *ReleasePoller {
	return &ReleasePoller{
		source:       source,
		settings:     settings,
		repos:        repos,
		status:       status,
		initialDelay: initialDelay,
		selfRepo:     strings.TrimSpace(selfRepo),
		now:          time.Now,
	}
}

// Start polls in the background until ctx is cancelled. The interval is read
// from settings after every cycle, so changes apply without a restart.
func (p *ReleasePoller) Start(ctx context.Context) {
	logger.WithComponent("poller").Debugf("starting release poller, first poll in %v", p.initialDelay)
	timer := time.NewTimer(p.initialDelay)
	go func() {
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("poller").Info("release poller stopped")
				return
			case <-timer.C:
				if err := p.Poll(ctx); err != nil {
					logger.WithComponent("poller").Warnf("poll finished with errors: %v", err)
				}
				timer.Reset(p.interval(ctx))
			}
		}
	}()
}

func (p *ReleasePoller) interval(ctx context.Context) time.Duration {
	minutes := p.settings.Get(ctx).RefreshInterval
	if minutes <= 0 {
		minutes = repository.DefaultSettings().RefreshInterval
	}
	return time.Duration(minutes) * time.Minute
}

// Poll runs one cycle. Fetch errors of single repositories do not stop the
// cycle; they are joined into the returned error and the status record.
func (p *ReleasePoller) Poll(ctx context.Context) error {
	if !p.running.TryLock() {
		logger.WithComponent("poller").Debug("poll already running, skipping")
		return nil
	}
	defer p.running.Unlock()

	log := logger.WithComponent("poller")
	settings := p.settings.Get(ctx)
	tracked := p.repos.Get(ctx)
	log.Debugf("polling %d repositories", len(tracked))

	newest, fetchErr := p.fetchAll(ctx, settings, tracked)

	var errs []error
	if fetchErr != nil {
		errs = append(errs, fetchErr)
	}
	if len(newest) > 0 {
		if err := p.apply(ctx, newest); err != nil {
			errs = append(errs, err)
		}
	}

	selfVersion, err := p.selfVersion(ctx, settings)
	if err != nil {
		errs = append(errs, err)
	}

	pollErr := errors.Join(errs...)
	checkedAt := p.now()
	p.status.Update(ctx, func(s repository.SystemStatus) repository.SystemStatus {
		s.LastCheckedAt = &checkedAt
		s.LastCheckError = nil
		if pollErr != nil {
			msg := pollErr.Error()
			s.LastCheckError = &msg
		}
		if selfVersion != "" {
			s.LatestKnownVersion = &selfVersion
		}
		return s
	})
	log.Debugf("poll completed, %d repositories with a matching release", len(newest))
	return pollErr
}

// fetchAll returns the newest matching release per repository id.
func (p *ReleasePoller) fetchAll(ctx context.Context, settings repository.AppSettings, tracked []repository.TrackedRepository) (map[string]remote.Release, error) {
	var (
		mu     sync.Mutex
		newest = make(map[string]remote.Release, len(tracked))
		errs   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(settings.ParallelRepoFetches, 1))
	for _, repo := range tracked {
		g.Go(func() error {
			releases, err := p.source.ListReleases(gctx, repo.Owner, repo.Name, settings.ReleasesPerPage)
			if err != nil {
				logger.WithComponent("poller").Warnf("list releases of %s/%s: %v", repo.Owner, repo.Name, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s/%s: %w", repo.Owner, repo.Name, err))
				mu.Unlock()
				// One failing repository must not cancel the others.
				return nil
			}
			rel, ok := filterFor(settings, repo).newest(releases)
			if !ok {
				return nil
			}
			mu.Lock()
			newest[repo.ID] = rel
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return newest, errors.Join(errs...)
}

// apply stores the new latest releases. The list is re-read inside the update
// so edits made while fetching are kept.
func (p *ReleasePoller) apply(ctx context.Context, newest map[string]remote.Release) error {
	_, err := p.repos.Update(ctx, func(repos []repository.TrackedRepository) ([]repository.TrackedRepository, error) {
		changed := false
		for i := range repos {
			rel, ok := newest[repos[i].ID]
			if !ok {
				continue
			}
			if repos[i].LatestRelease != nil && repos[i].LatestRelease.Tag == rel.Tag {
				continue
			}
			repos[i].LatestRelease = &repository.ReleaseSnapshot{
				Tag:         rel.Tag,
				Name:        rel.Name,
				URL:         rel.URL,
				Body:        rel.Body,
				Prerelease:  rel.Prerelease,
				PublishedAt: rel.PublishedAt,
			}
			repos[i].IsNew = repos[i].LastSeenReleaseTag != rel.Tag
			changed = true
			logger.WithComponent("poller").Infof("new release %s for %s", rel.Tag, repos[i].ID)
		}
		if !changed {
			return nil, errUnchanged
		}
		return repos, nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	return err
}

func (p *ReleasePoller) selfVersion(ctx context.Context, settings repository.AppSettings) (string, error) {
	if p.selfRepo == "" {
		return "", nil
	}
	owner, name, ok := strings.Cut(p.selfRepo, "/")
	if !ok || owner == "" || name == "" {
		return "", fmt.Errorf("self repo %q is not owner/name", p.selfRepo)
	}
	releases, err := p.source.ListReleases(ctx, owner, name, settings.ReleasesPerPage)
	if err != nil {
		return "", fmt.Errorf("self repo %s: %w", p.selfRepo, err)
	}
	stable := releaseFilter{channels: []string{"stable"}}
	rel, ok := stable.newest(releases)
	if !ok {
		return "", nil
	}
	return rel.Tag, nil
}

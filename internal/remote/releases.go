package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v67/github"
	"golang.org/x/time/rate"
)

// Release is one published release of a tracked repository.
type Release struct {
	Tag         string
	Name        string
	URL         string
	Body        string
	Prerelease  bool
	Draft       bool
	PublishedAt time.Time
}

// GitHubReleases lists releases through the GitHub REST API.
type GitHubReleases struct {
	repos   *github.RepositoriesService
	limiter *rate.Limiter
}

// NewGitHubReleases creates a release source. A token is optional but raises
// GitHub's anonymous rate limit considerably.
func NewGitHubReleases(opts ...Option) (*GitHubReleases, error) {
	client, limiter, err := newGitHubClient(opts)
	if err != nil {
		return nil, err
	}
	return &GitHubReleases{repos: client.Repositories, limiter: limiter}, nil
}

// ListReleases returns the newest releases of owner/repo, newest first.
func (g *GitHubReleases) ListReleases(ctx context.Context, owner, repo string, perPage int) ([]Release, error) {
	if err := wait(ctx, g.limiter); err != nil {
		return nil, err
	}

	ghReleases, resp, err := g.repos.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, wrapGitHubError(err, resp, fmt.Sprintf("list releases of %s/%s", owner, repo))
	}

	releases := make([]Release, 0, len(ghReleases))
	for _, r := range ghReleases {
		releases = append(releases, convertRelease(r))
	}
	return releases, nil
}

func convertRelease(r *github.RepositoryRelease) Release {
	rel := Release{
		Tag:        r.GetTagName(),
		Name:       r.GetName(),
		URL:        r.GetHTMLURL(),
		Body:       r.GetBody(),
		Prerelease: r.GetPrerelease(),
		Draft:      r.GetDraft(),
	}
	if published := r.GetPublishedAt(); !published.IsZero() {
		rel.PublishedAt = published.Time
	} else if created := r.GetCreatedAt(); !created.IsZero() {
		rel.PublishedAt = created.Time
	}
	return rel
}

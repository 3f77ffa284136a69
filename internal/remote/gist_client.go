package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/bassista/go_relboard/internal/logger"
	"github.com/google/go-github/v67/github"
	"golang.org/x/time/rate"
)

// GistClient stores the named documents as files of a single GitHub Gist.
type GistClient struct {
	gists   *github.GistsService
	gistID  string
	limiter *rate.Limiter
}

// NewGistClient creates a client for the gist with the given ID.
func NewGistClient(gistID string, opts ...Option) (*GistClient, error) {
	if gistID == "" {
		return nil, errors.New("gist ID is required")
	}
	client, limiter, err := newGitHubClient(opts)
	if err != nil {
		return nil, err
	}
	return &GistClient{gists: client.Gists, gistID: gistID, limiter: limiter}, nil
}

// ReadContainer fetches the whole gist.
func (g *GistClient) ReadContainer(ctx context.Context) (Container, error) {
	if err := wait(ctx, g.limiter); err != nil {
		return Container{}, err
	}

	gist, resp, err := g.gists.Get(ctx, g.gistID)
	if err != nil {
		return Container{}, wrapGitHubError(err, resp, "read gist")
	}

	files := make(map[string]string, len(gist.Files))
	for name, file := range gist.Files {
		content := file.GetContent()
		// The API inlines at most one megabyte per file and reports the full size.
		if file.GetSize() > len(content) {
			return Container{}, fmt.Errorf("%w: read gist: %s truncated at %d of %d bytes",
				ErrUnavailable, name, len(content), file.GetSize())
		}
		files[string(name)] = content
	}
	logger.WithComponent("gist").Debugf("read gist %s with %d files", g.gistID, len(files))
	return Container{Files: files}, nil
}

// PatchFile replaces one file of the gist, leaving the others untouched.
func (g *GistClient) PatchFile(ctx context.Context, name, content string) error {
	if name == "" {
		return errors.New("file name is required")
	}
	if err := wait(ctx, g.limiter); err != nil {
		return err
	}

	patch := &github.Gist{
		Files: map[github.GistFilename]github.GistFile{
			github.GistFilename(name): {Content: github.String(content)},
		},
	}
	_, resp, err := g.gists.Edit(ctx, g.gistID, patch)
	if err != nil {
		return wrapGitHubError(err, resp, fmt.Sprintf("patch %s", name))
	}
	logger.WithDocument("gist", name).Debugf("patched gist %s", g.gistID)
	return nil
}

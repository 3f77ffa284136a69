package remote

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
)

// ErrUnavailable is returned for every failure talking to the document store:
// network errors, authentication failures, non-success HTTP status, missing
// credentials.
var ErrUnavailable = errors.New("remote document store unavailable")

// Container is one fetch of the whole multi-file document: file name to content.
type Container struct {
	Files map[string]string
}

// File returns the content of a named file and whether it exists.
func (c Container) File(name string) (string, bool) {
	content, ok := c.Files[name]
	return content, ok
}

// Names lists the files in the container in lexical order.
func (c Container) Names() []string {
	names := make([]string, 0, len(c.Files))
	for name := range c.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone copies the file map so the caller may keep the result.
func (c Container) Clone() Container {
	return Container{Files: maps.Clone(c.Files)}
}

// Client is the remote document store: one read of the whole container and one
// patch of a single named file. Implementations wrap ErrUnavailable on failure.
type Client interface {
	ReadContainer(ctx context.Context) (Container, error)
	PatchFile(ctx context.Context, name, content string) error
}

// unavailableClient stands in when credentials are missing: every call fails
// immediately instead of hanging on an unauthenticated request.
type unavailableClient struct {
	reason string
}

func (u unavailableClient) ReadContainer(context.Context) (Container, error) {
	return Container{}, fmt.Errorf("%w: %s", ErrUnavailable, u.reason)
}

func (u unavailableClient) PatchFile(context.Context, string, string) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, u.reason)
}

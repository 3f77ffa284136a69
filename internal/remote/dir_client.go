package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bassista/go_relboard/internal/logger"
	"github.com/fsnotify/fsnotify"
)

const tmpMarker = ".tmp-"

// DirClient treats a local directory as the container: one file per document.
// It is meant for self-hosting without a gist and for local development.
type DirClient struct {
	dir string
	mu  sync.Mutex
}

// NewDirClient creates the directory if needed.
func NewDirClient(dir string) (*DirClient, error) {
	if dir == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &DirClient{dir: dir}, nil
}

// ReadContainer reads every regular, non-hidden file of the directory.
func (d *DirClient) ReadContainer(ctx context.Context) (Container, error) {
	if err := ctx.Err(); err != nil {
		return Container{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return Container{}, fmt.Errorf("%w: read data directory: %w", ErrUnavailable, err)
	}

	files := map[string]string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !isDocumentFile(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.dir, e.Name()))
		if err != nil {
			return Container{}, fmt.Errorf("%w: read %s: %w", ErrUnavailable, e.Name(), err)
		}
		files[e.Name()] = string(data)
	}
	return Container{Files: files}, nil
}

// PatchFile atomically replaces one file (temp file + rename).
func (d *DirClient) PatchFile(ctx context.Context, name, content string) error {
	if !isDocumentFile(name) || filepath.Base(name) != name {
		return fmt.Errorf("invalid document name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := writeAtomic(d.dir, name, []byte(content)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func writeAtomic(dir, name string, payload []byte) error {
	tmpFile, err := os.CreateTemp(dir, name+tmpMarker)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func isDocumentFile(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.Contains(name, tmpMarker)
}

// Watch calls onChange with the file name whenever a document in the directory
// is edited from outside, debounced per burst of events. The directory (not the
// files) is watched so temp+rename replacements are observed. Cancel ctx to stop.
func (d *DirClient) Watch(ctx context.Context, onChange func(name string)) error {
	if onChange == nil {
		return errors.New("onChange callback is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(d.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	go func() {
		defer watcher.Close()

		var (
			debounce *time.Timer
			pending  = map[string]struct{}{}
			mu       sync.Mutex
		)
		fire := func() {
			mu.Lock()
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			pending = map[string]struct{}{}
			mu.Unlock()
			for _, name := range names {
				onChange(name)
			}
		}

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Base(event.Name)
				if !isDocumentFile(name) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				pending[name] = struct{}{}
				mu.Unlock()
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(200*time.Millisecond, fire)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithComponent("dir-store").Errorf("watcher error: %v", err)
			}
		}
	}()

	return nil
}

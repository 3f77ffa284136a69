package remote

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/bassista/go_relboard/internal/logger"
)

// MemoryClient keeps the container in process memory. It backs the "memory"
// store backend and lets tests script remote failures.
type MemoryClient struct {
	mu      sync.Mutex
	files   map[string]string
	readErr error
	saveErr error
	reads   int
	patches int
}

// NewMemoryClient creates a client holding a copy of files.
func NewMemoryClient(files map[string]string) *MemoryClient {
	if files == nil {
		files = map[string]string{}
	}
	return &MemoryClient{files: maps.Clone(files)}
}

func (m *MemoryClient) ReadContainer(ctx context.Context) (Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if err := ctx.Err(); err != nil {
		return Container{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if m.readErr != nil {
		return Container{}, fmt.Errorf("%w: %w", ErrUnavailable, m.readErr)
	}
	return Container{Files: maps.Clone(m.files)}, nil
}

func (m *MemoryClient) PatchFile(ctx context.Context, name, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patches++
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if m.saveErr != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, m.saveErr)
	}
	logger.WithDocument("memory-store", name).Debugf("patching file (%d bytes)", len(content))
	m.files[name] = content
	return nil
}

// FailReads makes subsequent reads fail with err; nil restores them.
func (m *MemoryClient) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// FailWrites makes subsequent patches fail with err; nil restores them.
func (m *MemoryClient) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// File returns the stored content of one file.
func (m *MemoryClient) File(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[name]
	return content, ok
}

// Reads returns how many container reads were attempted.
func (m *MemoryClient) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Patches returns how many file patches were attempted.
func (m *MemoryClient) Patches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patches
}

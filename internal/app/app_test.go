package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bassista/go_relboard/internal/config"
	"github.com/bassista/go_relboard/internal/remote"
	"github.com/bassista/go_relboard/internal/repository"
	"github.com/bassista/go_relboard/internal/storage"
)

// mockSource implements scheduler.ReleaseSource for testing
type mockSource struct{}

func (mockSource) ListReleases(context.Context, string, string, int) ([]remote.Release, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Backend:        config.BackendMemory,
			Mode:           config.ModeLive,
			CacheTTL:       30 * time.Second,
			FallbackTTL:    time.Hour,
			SnapshotWindow: 0,
			SweepInterval:  time.Minute,
		},
		Poller: config.PollerConfig{Enabled: false},
	}
}

func TestNew_Validation(t *testing.T) {
	client := remote.NewMemoryClient(nil)

	if _, err := New(nil, client, nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(testConfig(), nil, nil); err == nil {
		t.Error("expected error for nil client")
	}

	cfg := testConfig()
	cfg.Poller.Enabled = true
	if _, err := New(cfg, client, nil); err == nil {
		t.Error("expected error for enabled poller without a source")
	}

	cfg = testConfig()
	cfg.Store.Mode = "sometimes"
	if _, err := New(cfg, client, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNew_SharesOneStack(t *testing.T) {
	client := remote.NewMemoryClient(nil)
	a, err := New(testConfig(), client, mockSource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Shutdown()

	ctx := context.Background()
	if err := a.Settings.Save(ctx, repository.AppSettings{Locale: "de"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := client.File(repository.SettingsDocument); !ok {
		t.Error("expected settings to reach the remote client")
	}
	if a.Poller == nil {
		t.Error("expected poller to be built when a source is given")
	}
}

func TestNew_OfflineModeSkipsRemote(t *testing.T) {
	client := remote.NewMemoryClient(nil)
	cfg := testConfig()
	cfg.Store.Mode = config.ModeOffline

	a, err := New(cfg, client, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Shutdown()

	ctx := context.Background()
	_ = a.Settings.Get(ctx)
	if err := a.Settings.Save(ctx, repository.AppSettings{Locale: "fr"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if client.Reads() != 0 || client.Patches() != 0 {
		t.Errorf("expected no remote I/O, got %d reads and %d patches", client.Reads(), client.Patches())
	}
}

func TestShutdown_ClosesSerializer(t *testing.T) {
	a, err := New(testConfig(), remote.NewMemoryClient(nil), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.Shutdown()
	a.Shutdown()

	err = a.Writes.Do(context.Background(), func(context.Context) error { return nil })
	if err != storage.ErrSerializerClosed {
		t.Errorf("expected ErrSerializerClosed, got %v", err)
	}
	if a.BaseCtx.Err() == nil {
		t.Error("expected base context to be cancelled")
	}
}

func TestShutdown_NilApp(t *testing.T) {
	var a *App
	a.Shutdown()
}

func TestStartWatchers_DirBackendInvalidatesOnEdit(t *testing.T) {
	dir := t.TempDir()
	client, err := remote.NewDirClient(dir)
	if err != nil {
		t.Fatalf("dir client: %v", err)
	}
	cfg := testConfig()
	cfg.Store.Backend = config.BackendDir
	cfg.Store.DirPath = dir

	a, err := New(cfg, client, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Shutdown()
	if err := a.StartWatchers(); err != nil {
		t.Fatalf("start watchers: %v", err)
	}

	ctx := context.Background()
	if got := a.Settings.Locale(ctx); got != "en" {
		t.Fatalf("expected default locale, got %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, repository.SettingsDocument), []byte(`{"locale":"pt"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for a.Settings.Locale(ctx) != "pt" {
		if time.Now().After(deadline) {
			t.Fatal("expected the external edit to become visible")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

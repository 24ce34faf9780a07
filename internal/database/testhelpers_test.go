package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/scilit/paperbase/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	cfg.PoolSize = 2
	cfg.AcquireTimeout = 250 * time.Millisecond
	return cfg
}

func newTestManager(t *testing.T, cfg config.Config) *Manager {
	t.Helper()

	mgr, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to open manager: %v", err)
	}
	t.Cleanup(func() {
		if err := mgr.Close(); err != nil {
			t.Errorf("failed to close manager: %v", err)
		}
	})
	return mgr
}

func initializedManager(t *testing.T) *Manager {
	t.Helper()

	mgr := newTestManager(t, testConfig(t))
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return mgr
}

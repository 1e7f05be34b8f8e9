// Package helpers provides shared test fixtures.
package helpers

import (
	"testing"
	"time"

	"github.com/astrialabs/astrochat/internal/cache"
	"github.com/astrialabs/astrochat/internal/repository"
	"github.com/astrialabs/astrochat/internal/session"
)

func NewTestRepository(t *testing.T) *repository.SQLiteRepository {
	t.Helper()

	r, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite repository: %v", err)
	}

	t.Cleanup(func() {
		_ = r.Close()
	})

	return r
}

func NewTestBackend(t *testing.T) *cache.MemoryBackend {
	t.Helper()

	b := cache.NewMemoryBackend()
	t.Cleanup(func() {
		_ = b.Close()
	})
	return b
}

func NewTestSessionStore(t *testing.T, backend cache.Backend) *session.Store {
	t.Helper()
	return session.New(backend, 24*time.Hour, 100)
}

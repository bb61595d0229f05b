// Package testutil содержит фикстуры для тестов сценариев бота.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spot-bot/internal/adapters/repo"
	"spot-bot/internal/infra/db"
)

// NewStore открывает чистое SQLite-хранилище во временном каталоге.
func NewStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(context.Background(), db.Config{File: filepath.Join(t.TempDir(), "spot.sqlite3")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewRepo возвращает репозиторий поверх чистого хранилища.
func NewRepo(t *testing.T) *repo.Repo {
	t.Helper()
	return repo.New(NewStore(t))
}

// Clock: управляемые часы.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock создаёт часы с заданным временем.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

// Now реализует domain.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance сдвигает время вперёд.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

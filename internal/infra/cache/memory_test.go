package cache

import (
	"errors"
	"testing"
	"time"

	"spot-bot/internal/domain"
)

func TestMemoryOnce(t *testing.T) {
	m := NewMemory()
	calls := 0
	fn := func() error { calls++; return nil }
	for i := 0; i < 3; i++ {
		if err := m.Once("upd:1", time.Minute, fn); err != nil {
			t.Fatalf("once: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("ожидали один вызов, получили %d", calls)
	}
}

func TestMemoryOnceReleasesOnError(t *testing.T) {
	m := NewMemory()
	boom := errors.New("boom")
	if err := m.Once("k", time.Minute, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("ожидали boom, получили %v", err)
	}
	called := false
	_ = m.Once("k", time.Minute, func() error { called = true; return nil })
	if !called {
		t.Fatal("после ошибки ключ должен освобождаться")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	if err := m.Set("sign", []byte("@mario"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := m.Get("sign"); err != nil || string(v) != "@mario" {
		t.Fatalf("get: %q %v", v, err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := m.Get("sign"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound после истечения, получили %v", err)
	}
}

package cache

import (
	"sync"
	"time"

	"spot-bot/internal/domain"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Memory реализует domain.Cache в памяти процесса. Используется, когда Redis не настроен.
type Memory struct {
	mu    sync.Mutex
	items map[string]entry
	now   func() time.Time
}

// NewMemory создаёт кэш в памяти.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry), now: time.Now}
}

// Once выполняет функцию, если ключ ещё не задан.
func (m *Memory) Once(key string, ttl time.Duration, fn func() error) error {
	m.mu.Lock()
	if _, ok := m.lookup(key); ok {
		m.mu.Unlock()
		return nil
	}
	m.items[key] = entry{value: []byte("1"), expires: m.expiry(ttl)}
	m.mu.Unlock()

	if err := fn(); err != nil {
		_ = m.Del(key)
		return err
	}
	return nil
}

// Set задаёт значение.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = entry{value: append([]byte(nil), value...), expires: m.expiry(ttl)}
	return nil
}

// Get возвращает значение или domain.ErrNotFound.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Del удаляет ключ.
func (m *Memory) Del(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) lookup(key string) (entry, bool) {
	e, ok := m.items[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.items, key)
		return entry{}, false
	}
	return e, true
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

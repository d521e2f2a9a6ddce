package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMiss ключ отсутствует или истёк.
var ErrMiss = errors.New("cache: key not found")

// Cache хранит значения в JSON, поэтому память и Redis ведут себя одинаково.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Memory кэш в памяти процесса с TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemory создаёт кэш. Истёкшие записи вычищаются отдельной горутиной до отмены ctx.
func NewMemory(ctx context.Context, cleanupEvery time.Duration) *Memory {
	m := &Memory{entries: make(map[string]memoryEntry), now: time.Now}
	if cleanupEvery > 0 {
		go m.cleanup(ctx, cleanupEvery)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string, dst interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		return ErrMiss
	}
	return json.Unmarshal(entry.data, dst)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{data: data, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for key, entry := range m.entries {
				if now.After(entry.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

// GetOrLoad возвращает значение из кэша или вычисляет и сохраняет его.
// Ошибка записи в кэш не мешает вернуть вычисленное значение.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var value T
	if err := c.Get(ctx, key, &value); err == nil {
		return value, nil
	}

	value, err := load()
	if err != nil {
		return value, err
	}
	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}

// Ключи кэша
func MatchesKey(userID uuid.UUID) string {
	return "matches:" + userID.String()
}

func DashboardKey() string {
	return "admin:dashboard"
}

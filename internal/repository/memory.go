package repository

import (
	"context"
	"sync"
	"time"

	"mareeba/internal/models"
)

// MemoryAvailabilityCache is the in-process fallback cache used when
// Redis is absent or down.
type MemoryAvailabilityCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	rows      []models.SessionAvailability
	expiresAt time.Time
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (m *MemoryAvailabilityCache) Get(ctx context.Context, date string) ([]models.SessionAvailability, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[date]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.rows, true, nil
}

func (m *MemoryAvailabilityCache) Set(ctx context.Context, date string, rows []models.SessionAvailability) error {
	m.mu.Lock()
	m.entries[date] = memoryEntry{rows: rows, expiresAt: time.Now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryAvailabilityCache) Invalidate(ctx context.Context, date string) error {
	m.mu.Lock()
	delete(m.entries, date)
	m.mu.Unlock()
	return nil
}

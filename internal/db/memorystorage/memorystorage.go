// Package memorystorage keeps URL mappings in process memory.
// It honours the same contract as the SQL store and is used where a database is not wanted.
package memorystorage

import (
	"context"
	"fmt"
	"sync"

	"github.com/patric-chuzhbe/linkshrt/internal/models"
)

type MemoryStorage struct {
	mu          sync.RWMutex
	shortToFull map[string]*models.URLMapping
	nextID      int64
	pingErr     error
}

func New() *MemoryStorage {
	return &MemoryStorage{
		shortToFull: map[string]*models.URLMapping{},
		nextID:      1,
	}
}

// EnsureSchema has nothing to prepare.
func (s *MemoryStorage) EnsureSchema(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.shortToFull[token]

	return ok, nil
}

func (s *MemoryStorage) Insert(ctx context.Context, originalURL, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shortToFull[token]; ok {
		return fmt.Errorf("%w: %q", models.ErrDuplicateKey, token)
	}

	s.shortToFull[token] = &models.URLMapping{
		ID:          s.nextID,
		OriginalURL: originalURL,
		ShortURL:    token,
	}
	s.nextID++

	return nil
}

func (s *MemoryStorage) Lookup(ctx context.Context, token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.shortToFull[token]
	if !ok {
		return "", models.ErrNotFound
	}

	return mapping.OriginalURL, nil
}

// Len returns the number of stored mappings.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.shortToFull)
}

// SetPingError makes subsequent Ping calls fail with err; nil restores health.
func (s *MemoryStorage) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pingErr = err
}

func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pingErr
}

func (s *MemoryStorage) Close() error {
	return nil
}

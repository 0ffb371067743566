package store

import (
	"context"
	"sync"
	"time"

	"github.com/KemboiK/evolve-bot/internal/models"
)

// Memory keeps conversation records in process memory. Useful for tests and
// local development without a database file.
type Memory struct {
	mu      sync.RWMutex
	records []models.Record
	nextID  int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (s *Memory) Append(_ context.Context, rec *models.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, *rec)
	return rec.ID, nil
}

func (s *Memory) ListRecent(_ context.Context, limit int, userID string) ([]models.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Record
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if userID != "" && s.records[i].UserID != userID {
			continue
		}
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *Memory) History(ctx context.Context, userID string, limit int) ([]models.Record, error) {
	recent, err := s.ListRecent(ctx, limit, userID)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

func (s *Memory) Close() error {
	return nil
}

// Package store provides append-only persistence for conversation records.
// No update or delete operation is exposed.
package store

import (
	"context"

	"github.com/KemboiK/evolve-bot/internal/models"
)

// DefaultListLimit caps admin listings when the caller does not ask for a
// specific limit.
const DefaultListLimit = 200

// Store persists conversation records. Append is atomic per record and safe
// under concurrent calls; a storage failure is always reported, never
// swallowed.
type Store interface {
	// Append persists rec and returns its assigned id.
	Append(ctx context.Context, rec *models.Record) (int64, error)

	// ListRecent returns up to limit records, most recent first. A non-empty
	// userID restricts the listing to that user; limit <= 0 means
	// DefaultListLimit.
	ListRecent(ctx context.Context, limit int, userID string) ([]models.Record, error)

	// History returns the last limit records for userID in chronological
	// order, for use as generation context.
	History(ctx context.Context, userID string, limit int) ([]models.Record, error)

	Close() error
}

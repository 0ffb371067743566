package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"go.uber.org/zap"

	"github.com/KemboiK/evolve-bot/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	inbound_text TEXT NOT NULL,
	outbound_text TEXT NOT NULL,
	verdict_inbound TEXT NOT NULL,
	verdict_outbound TEXT NOT NULL,
	fallback_used INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_user ON records(user_id, id);`

// SQLite stores conversation records in a SQLite database file.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLite opens (and creates if needed) the database at path.
func NewSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	logger.Info("sqlite store initialized", zap.String("path", path))
	return &SQLite{db: db, logger: logger}, nil
}

func (s *SQLite) Append(ctx context.Context, rec *models.Record) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO records (user_id, inbound_text, outbound_text, verdict_inbound, verdict_outbound, fallback_used, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		rec.UserID, rec.InboundText, rec.OutboundText, rec.VerdictInbound, rec.VerdictOutbound, rec.FallbackUsed, rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("append record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append record id: %w", err)
	}
	rec.ID = id
	return id, nil
}

func (s *SQLite) ListRecent(ctx context.Context, limit int, userID string) ([]models.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT id, user_id, inbound_text, outbound_text, verdict_inbound, verdict_outbound, fallback_used, created_at
		FROM records`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	return s.queryRecords(ctx, query, args...)
}

func (s *SQLite) History(ctx context.Context, userID string, limit int) ([]models.Record, error) {
	recent, err := s.ListRecent(ctx, limit, userID)
	if err != nil {
		return nil, err
	}
	// ListRecent is newest-first; history is oldest-first
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

func (s *SQLite) queryRecords(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.InboundText, &rec.OutboundText,
			&rec.VerdictInbound, &rec.VerdictOutbound, &rec.FallbackUsed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

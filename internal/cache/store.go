// Package cache is the durable offline store: one JSON-encoded receipt
// collection per user, plus the pending-deletion queue, kept in a local
// SQLite database.
//
// The cache is best effort by contract. Read failures degrade to an empty
// collection and write failures degrade to a no-op; both are logged but never
// propagated, so a broken local database can not take down an operation that
// the remote store could still serve.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"scontrino/internal/core"

	_ "modernc.org/sqlite"
)

const (
	receiptsKeyPrefix   = "receipts:"
	pendingDeletionsKey = "pending_deletions"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// List returns the user's cached receipts in insertion order. Any storage or
// decoding failure degrades to an empty collection.
func (s *Store) List(ctx context.Context, userID string) []core.Receipt {
	receipts, err := s.readReceipts(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "Cache read failed, degrading to empty collection",
			"user_id", userID, "error", err)
		return []core.Receipt{}
	}
	return receipts
}

// Upsert replaces the receipt with the same id, or appends it.
func (s *Store) Upsert(ctx context.Context, r core.Receipt) {
	receipts, err := s.readReceipts(ctx, r.UserID)
	if err != nil {
		slog.WarnContext(ctx, "Cache read failed during upsert, starting from empty",
			"user_id", r.UserID, "error", err)
		receipts = []core.Receipt{}
	}

	replaced := false
	for i := range receipts {
		if receipts[i].ID == r.ID {
			receipts[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		receipts = append(receipts, r)
	}

	s.writeReceipts(ctx, r.UserID, receipts)
}

// Delete removes the receipt if present; deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id, userID string) {
	receipts, err := s.readReceipts(ctx, userID)
	if err != nil || len(receipts) == 0 {
		return
	}

	kept := receipts[:0]
	for _, r := range receipts {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(receipts) {
		return
	}

	s.writeReceipts(ctx, userID, kept)
}

// ReplaceAll overwrites the user's cached collection with a fresh snapshot.
func (s *Store) ReplaceAll(ctx context.Context, userID string, receipts []core.Receipt) {
	s.writeReceipts(ctx, userID, receipts)
}

// All returns every cached receipt across users, for the sync sweep.
func (s *Store) All(ctx context.Context) []core.Receipt {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM cache_entries WHERE key LIKE ? ORDER BY key`,
		receiptsKeyPrefix+"%")
	if err != nil {
		slog.WarnContext(ctx, "Cache scan failed, degrading to empty collection", "error", err)
		return []core.Receipt{}
	}
	defer rows.Close()

	var all []core.Receipt
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			slog.WarnContext(ctx, "Cache row scan failed", "error", err)
			continue
		}
		var receipts []core.Receipt
		if err := json.Unmarshal([]byte(value), &receipts); err != nil {
			slog.WarnContext(ctx, "Cache entry is corrupt, skipping", "error", err)
			continue
		}
		all = append(all, receipts...)
	}
	if err := rows.Err(); err != nil {
		slog.WarnContext(ctx, "Cache scan aborted", "error", err)
	}
	return all
}

// PendingDeletion is one queued remote deletion. The owner travels with the
// id so the replay stays scoped to the owning user.
type PendingDeletion struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// QueuePendingDeletion records an id for later remote replay. Queueing the
// same id twice is a no-op.
func (s *Store) QueuePendingDeletion(ctx context.Context, id, userID string) {
	pending := s.PendingDeletions(ctx)
	for _, p := range pending {
		if p.ID == id {
			return
		}
	}
	pending = append(pending, PendingDeletion{ID: id, UserID: userID})
	s.writePendingDeletions(ctx, pending)
}

// PendingDeletions returns the queued deletions in queue order.
func (s *Store) PendingDeletions(ctx context.Context) []PendingDeletion {
	value, err := s.readEntry(ctx, pendingDeletionsKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.WarnContext(ctx, "Pending deletion read failed, degrading to empty", "error", err)
		}
		return nil
	}
	var pending []PendingDeletion
	if err := json.Unmarshal([]byte(value), &pending); err != nil {
		slog.WarnContext(ctx, "Pending deletion entry is corrupt, degrading to empty", "error", err)
		return nil
	}
	return pending
}

// RemovePendingDeletion drops a single replayed id from the queue.
func (s *Store) RemovePendingDeletion(ctx context.Context, id string) {
	pending := s.PendingDeletions(ctx)
	kept := pending[:0]
	for _, p := range pending {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.writePendingDeletions(ctx, kept)
}

// ClearPendingDeletions empties the queue.
func (s *Store) ClearPendingDeletions(ctx context.Context) {
	s.writePendingDeletions(ctx, nil)
}

func (s *Store) readReceipts(ctx context.Context, userID string) ([]core.Receipt, error) {
	value, err := s.readEntry(ctx, receiptsKeyPrefix+userID)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.Receipt{}, nil
	}
	if err != nil {
		return nil, err
	}

	var receipts []core.Receipt
	if err := json.Unmarshal([]byte(value), &receipts); err != nil {
		return nil, fmt.Errorf("decode cached receipts: %w", err)
	}
	return receipts, nil
}

func (s *Store) writeReceipts(ctx context.Context, userID string, receipts []core.Receipt) {
	if receipts == nil {
		receipts = []core.Receipt{}
	}
	encoded, err := json.Marshal(receipts)
	if err != nil {
		slog.WarnContext(ctx, "Cache encode failed, dropping write",
			"user_id", userID, "error", err)
		return
	}
	s.writeEntry(ctx, receiptsKeyPrefix+userID, string(encoded))
}

func (s *Store) writePendingDeletions(ctx context.Context, pending []PendingDeletion) {
	if pending == nil {
		pending = []PendingDeletion{}
	}
	encoded, err := json.Marshal(pending)
	if err != nil {
		slog.WarnContext(ctx, "Pending deletion encode failed, dropping write", "error", err)
		return
	}
	s.writeEntry(ctx, pendingDeletionsKey, string(encoded))
}

func (s *Store) readEntry(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (s *Store) writeEntry(ctx context.Context, key, value string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		slog.WarnContext(ctx, "Cache write failed, dropping write", "key", key, "error", err)
	}
}

// Package remote is the hosted side of persistence: receipt CRUD against a
// Postgres table, scoped by user on every statement.
//
// Infrastructure failures are wrapped in core.ErrRemoteUnavailable so the
// reconciling service can tell "the network is down" apart from "the row does
// not exist" and fall back to the local cache.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scontrino/internal/core"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds the store without dialing. A bad DSN fails here;
// an unreachable database does not, the connectivity monitor reports that.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping probes connectivity; used by the monitor that drives the online flag.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", core.ErrRemoteUnavailable, err)
	}
	return nil
}

const receiptColumns = `id, user_id, store_name, purchase_date,
	total_amount::text, subtotal::text, tax_amount::text, discount_amount::text,
	items, image_url, created_at, updated_at`

// List returns the user's receipts ordered by purchase date, newest first.
func (s *PostgresStore) List(ctx context.Context, userID string) ([]core.Receipt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE user_id = $1 ORDER BY purchase_date DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", core.ErrRemoteUnavailable, err)
	}
	defer rows.Close()

	receipts := []core.Receipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan receipt: %v", core.ErrRemoteUnavailable, err)
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", core.ErrRemoteUnavailable, err)
	}
	return receipts, nil
}

// GetByID fetches one receipt scoped to its owner.
func (s *PostgresStore) GetByID(ctx context.Context, id, userID string) (core.Receipt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = $1 AND user_id = $2`,
		id, userID)

	r, err := scanReceipt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Receipt{}, core.ErrNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("%w: get receipt: %v", core.ErrRemoteUnavailable, err)
	}
	return r, nil
}

// Insert stores a new receipt. A client-minted id is preserved; an empty id
// gets a fresh UUID. Missing timestamps are assigned by the store.
func (s *PostgresStore) Insert(ctx context.Context, r core.Receipt) (core.Receipt, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO receipts
			(id, user_id, store_name, purchase_date, total_amount, subtotal,
			 tax_amount, discount_amount, items, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12)`,
		insertArgs(r)...)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("%w: insert receipt: %v", core.ErrRemoteUnavailable, err)
	}

	slog.InfoContext(ctx, "Receipt inserted into remote store",
		"receipt_id", r.ID, "user_id", r.UserID, "store_name", r.StoreName)
	return r, nil
}

// Update merges a partial patch onto the stored row and bumps updated_at.
func (s *PostgresStore) Update(ctx context.Context, id, userID string, patch core.ReceiptPatch) (core.Receipt, error) {
	existing, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return core.Receipt{}, err
	}

	merged := patch.Apply(existing)
	merged.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	items, err := encodeItems(merged.Items)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("%w: encode items: %v", core.ErrRemoteUnavailable, err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE receipts
		SET store_name = $3, purchase_date = $4, total_amount = $5::numeric,
		    subtotal = $6::numeric, tax_amount = $7::numeric, discount_amount = $8::numeric,
		    items = $9, image_url = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2`,
		merged.ID, merged.UserID, merged.StoreName, formatTime(merged.Date),
		merged.TotalAmount.String(), merged.Subtotal.String(),
		merged.TaxAmount.String(), merged.DiscountAmount.String(),
		items, nullable(merged.ImageURL), formatTime(merged.UpdatedAt))
	if err != nil {
		return core.Receipt{}, fmt.Errorf("%w: update receipt: %v", core.ErrRemoteUnavailable, err)
	}

	slog.InfoContext(ctx, "Receipt updated in remote store",
		"receipt_id", merged.ID, "user_id", merged.UserID)
	return merged, nil
}

// Upsert writes a full receipt, inserting or replacing by id. The sync sweep
// uses it to replay offline writes; ownership is enforced on conflict so a
// row can never migrate between users.
func (s *PostgresStore) Upsert(ctx context.Context, r core.Receipt) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO receipts
			(id, user_id, store_name, purchase_date, total_amount, subtotal,
			 tax_amount, discount_amount, items, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			store_name = EXCLUDED.store_name,
			purchase_date = EXCLUDED.purchase_date,
			total_amount = EXCLUDED.total_amount,
			subtotal = EXCLUDED.subtotal,
			tax_amount = EXCLUDED.tax_amount,
			discount_amount = EXCLUDED.discount_amount,
			items = EXCLUDED.items,
			image_url = EXCLUDED.image_url,
			updated_at = EXCLUDED.updated_at
		WHERE receipts.user_id = EXCLUDED.user_id`,
		insertArgs(r)...)
	if err != nil {
		return fmt.Errorf("%w: upsert receipt: %v", core.ErrRemoteUnavailable, err)
	}
	return nil
}

// Delete removes the owner's row. Deleting an absent or non-owned row is a
// no-op, never an error.
func (s *PostgresStore) Delete(ctx context.Context, id, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM receipts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%w: delete receipt: %v", core.ErrRemoteUnavailable, err)
	}
	return nil
}

func insertArgs(r core.Receipt) []any {
	items, err := encodeItems(r.Items)
	if err != nil {
		items = "[]"
	}
	return []any{
		r.ID, r.UserID, r.StoreName, formatTime(r.Date),
		r.TotalAmount.String(), r.Subtotal.String(),
		r.TaxAmount.String(), r.DiscountAmount.String(),
		items, nullable(r.ImageURL),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

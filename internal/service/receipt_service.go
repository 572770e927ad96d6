// Package service hosts the reconciling receipt service: the orchestrator
// that decides, per operation and per connectivity state, whether to hit the
// remote store or the local cache, and replays offline writes when
// connectivity returns.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scontrino/internal/cache"
	"scontrino/internal/core"
)

// RemoteStore is the hosted side of persistence.
type RemoteStore interface {
	List(ctx context.Context, userID string) ([]core.Receipt, error)
	GetByID(ctx context.Context, id, userID string) (core.Receipt, error)
	Insert(ctx context.Context, r core.Receipt) (core.Receipt, error)
	Update(ctx context.Context, id, userID string, patch core.ReceiptPatch) (core.Receipt, error)
	Upsert(ctx context.Context, r core.Receipt) error
	Delete(ctx context.Context, id, userID string) error
	Ping(ctx context.Context) error
}

// CacheStore is the best-effort local side. Its methods never fail; storage
// trouble degrades to empty reads and dropped writes inside the store.
type CacheStore interface {
	List(ctx context.Context, userID string) []core.Receipt
	Upsert(ctx context.Context, r core.Receipt)
	Delete(ctx context.Context, id, userID string)
	ReplaceAll(ctx context.Context, userID string, receipts []core.Receipt)
	All(ctx context.Context) []core.Receipt
	QueuePendingDeletion(ctx context.Context, id, userID string)
	PendingDeletions(ctx context.Context) []cache.PendingDeletion
	RemovePendingDeletion(ctx context.Context, id string)
}

// EventPublisher fans out receipt lifecycle events. A nil publisher disables
// eventing without disabling the service.
type EventPublisher interface {
	PublishReceiptEvent(ctx context.Context, event, receiptID, userID string) error
}

// Receipt lifecycle event names.
const (
	EventCreated = "receipt.created"
	EventUpdated = "receipt.updated"
	EventDeleted = "receipt.deleted"
	EventSynced  = "receipt.synced"
)

// ReceiptService reconciles the remote store and the local cache.
//
// Connectivity is a hint, not a precondition: any unexpected remote failure
// during add/update/delete takes the cache path, so a transient outage
// degrades to offline semantics instead of surfacing an error.
type ReceiptService struct {
	remote RemoteStore
	cache  CacheStore
	events EventPublisher
	clock  func() time.Time

	online atomic.Bool
	syncMu sync.Mutex
}

func NewReceiptService(remote RemoteStore, cacheStore CacheStore, events EventPublisher, clock func() time.Time) *ReceiptService {
	if clock == nil {
		clock = time.Now
	}
	// Starts offline; the connectivity monitor flips the flag after the
	// first successful probe, which also triggers the startup sweep.
	return &ReceiptService{
		remote: remote,
		cache:  cacheStore,
		events: events,
		clock:  clock,
	}
}

// Online reports the current connectivity flag.
func (s *ReceiptService) Online() bool {
	return s.online.Load()
}

// SetOnline transitions the connectivity flag. The offline-to-online edge
// starts an asynchronous sync sweep; the reverse edge only flips the flag.
func (s *ReceiptService) SetOnline(ctx context.Context, online bool) {
	was := s.online.Swap(online)
	if was == online {
		return
	}
	slog.InfoContext(ctx, "Connectivity changed", "online", online)
	if online {
		go s.SyncSweep(context.WithoutCancel(ctx))
	}
}

// List returns the user's receipts: remote when reachable (mirroring the
// result into the cache as a backup snapshot), cached otherwise.
func (s *ReceiptService) List(ctx context.Context, userID string) ([]core.Receipt, error) {
	if s.online.Load() {
		receipts, err := s.remote.List(ctx, userID)
		if err == nil {
			s.cache.ReplaceAll(ctx, userID, receipts)
			return receipts, nil
		}
		slog.WarnContext(ctx, "Remote list failed, serving cache",
			"user_id", userID, "error", err)
	}
	return s.cache.List(ctx, userID), nil
}

// GetByID looks up one receipt, falling back to the cache on a remote miss or
// failure. core.ErrNotFound is returned only when both sides miss.
func (s *ReceiptService) GetByID(ctx context.Context, id, userID string) (core.Receipt, error) {
	if s.online.Load() {
		r, err := s.remote.GetByID(ctx, id, userID)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Remote get failed, trying cache",
				"receipt_id", id, "error", err)
		}
	}
	for _, r := range s.cache.List(ctx, userID) {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Receipt{}, core.ErrNotFound
}

// Add persists a new receipt: into the remote store when possible, otherwise
// into the cache under a freshly minted id. The offline path never fails.
func (s *ReceiptService) Add(ctx context.Context, userID string, r core.Receipt) (core.Receipt, error) {
	r.UserID = userID
	if err := r.Validate(); err != nil {
		return core.Receipt{}, fmt.Errorf("validate receipt: %w", err)
	}
	if r.StoreName == "" {
		r.StoreName = core.UnknownStore
	}
	if r.Date.IsZero() {
		r.Date = s.clock().UTC().Truncate(time.Second)
	}

	if s.online.Load() {
		stored, err := s.remote.Insert(ctx, r)
		if err == nil {
			s.publish(ctx, EventCreated, stored.ID, stored.UserID)
			return stored, nil
		}
		slog.WarnContext(ctx, "Remote insert failed, caching locally",
			"user_id", userID, "error", err)
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Touch(s.clock())
	s.cache.Upsert(ctx, r)
	return r, nil
}

// Update merges a partial patch: onto the remote row when possible, otherwise
// onto the cached copy with a bumped updated_at.
func (s *ReceiptService) Update(ctx context.Context, id, userID string, patch core.ReceiptPatch) (core.Receipt, error) {
	if s.online.Load() {
		merged, err := s.remote.Update(ctx, id, userID, patch)
		if err == nil {
			s.publish(ctx, EventUpdated, merged.ID, merged.UserID)
			return merged, nil
		}
		if !errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Remote update failed, merging onto cache",
				"receipt_id", id, "error", err)
		}
	}

	for _, cached := range s.cache.List(ctx, userID) {
		if cached.ID != id {
			continue
		}
		merged := patch.Apply(cached)
		merged.Touch(s.clock())
		s.cache.Upsert(ctx, merged)
		return merged, nil
	}
	return core.Receipt{}, core.ErrNotFound
}

// Delete removes a receipt, scoped to its owner. Offline or failed remote
// deletes are applied to the cache and queued for replay; deleting an unknown
// id is a no-op either way.
func (s *ReceiptService) Delete(ctx context.Context, id, userID string) error {
	if s.online.Load() {
		if err := s.remote.Delete(ctx, id, userID); err == nil {
			s.cache.Delete(ctx, id, userID)
			s.publish(ctx, EventDeleted, id, userID)
			return nil
		} else {
			slog.WarnContext(ctx, "Remote delete failed, queueing for replay",
				"receipt_id", id, "error", err)
		}
	}

	s.cache.Delete(ctx, id, userID)
	s.cache.QueuePendingDeletion(ctx, id, userID)
	return nil
}

func (s *ReceiptService) publish(ctx context.Context, event, receiptID, userID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishReceiptEvent(ctx, event, receiptID, userID); err != nil {
		// Eventing is advisory; the write already succeeded.
		slog.WarnContext(ctx, "Failed to publish receipt event",
			"event", event, "receipt_id", receiptID, "error", err)
	}
}

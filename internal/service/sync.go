package service

import (
	"context"
	"log/slog"
)

// SyncSweep replays offline work against the remote store: queued deletions
// first, then every cached receipt. The ordering matters: a delete followed
// by a re-add of the same id while offline must resolve to "deleted", so a
// drained deletion also drops any stale cached copy before the upsert phase
// can see it.
//
// Each queued entry is removed only on its own successful remote write;
// failures stay queued for the next sweep. At most one sweep runs at a time.
func (s *ReceiptService) SyncSweep(ctx context.Context) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	deletions := s.cache.PendingDeletions(ctx)
	for _, p := range deletions {
		if err := s.remote.Delete(ctx, p.ID, p.UserID); err != nil {
			slog.WarnContext(ctx, "Pending deletion replay failed, keeping queued",
				"receipt_id", p.ID, "error", err)
			continue
		}
		s.cache.Delete(ctx, p.ID, p.UserID)
		s.cache.RemovePendingDeletion(ctx, p.ID)
		slog.InfoContext(ctx, "Pending deletion replayed",
			"receipt_id", p.ID, "user_id", p.UserID)
	}

	pending := s.cache.All(ctx)
	for _, r := range pending {
		if err := s.remote.Upsert(ctx, r); err != nil {
			slog.WarnContext(ctx, "Receipt upload failed, keeping cached",
				"receipt_id", r.ID, "error", err)
			continue
		}
		s.cache.Delete(ctx, r.ID, r.UserID)
		s.publish(ctx, EventSynced, r.ID, r.UserID)
		slog.InfoContext(ctx, "Receipt uploaded to remote store",
			"receipt_id", r.ID, "user_id", r.UserID)
	}

	if len(deletions) > 0 || len(pending) > 0 {
		slog.InfoContext(ctx, "Sync sweep finished",
			"deletions", len(deletions), "uploads", len(pending))
	}
}

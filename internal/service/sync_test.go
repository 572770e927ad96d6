package service

import (
	"context"
	"testing"
)

func TestSyncSweepUploadsCachedReceipts(t *testing.T) {
	remote := newFakeRemote()
	cacheStore := newFakeCache()
	pub := &fakePublisher{}
	svc := NewReceiptService(remote, cacheStore, pub, fixedClock)
	ctx := context.Background()

	r := newReceipt("r1")
	r.UserID = "u1"
	cacheStore.Upsert(ctx, r)

	svc.SyncSweep(ctx)

	if _, ok := remote.receipts["r1"]; !ok {
		t.Error("cached receipt should be uploaded")
	}
	if len(cacheStore.receipts["u1"]) != 0 {
		t.Error("uploaded receipt should leave the cache")
	}
	if len(pub.events) != 1 || pub.events[0].event != EventSynced {
		t.Errorf("expected one synced event, got %+v", pub.events)
	}
}

func TestSyncSweepDrainsDeletionsFirst(t *testing.T) {
	remote := newFakeRemote()
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()

	// Offline history: r1 was deleted, then re-added under the same id.
	// The sweep must resolve that to "deleted", not resurrect the copy.
	r := newReceipt("r1")
	r.UserID = "u1"
	remote.receipts["r1"] = r
	cacheStore.Upsert(ctx, r)
	cacheStore.QueuePendingDeletion(ctx, "r1", "u1")

	svc.SyncSweep(ctx)

	if _, ok := remote.receipts["r1"]; ok {
		t.Error("r1 should be gone from the remote store")
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "r1" {
		t.Errorf("expected one remote delete for r1, got %v", remote.deleted)
	}
	if len(remote.upserted) != 0 {
		t.Errorf("stale copy must not be re-uploaded, got upserts %v", remote.upserted)
	}
	if len(cacheStore.pending) != 0 {
		t.Errorf("drained deletion should leave the queue, got %+v", cacheStore.pending)
	}
}

func TestSyncSweepKeepsFailedWork(t *testing.T) {
	remote := newFakeRemote()
	remote.fail = true
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()

	r := newReceipt("r1")
	r.UserID = "u1"
	cacheStore.Upsert(ctx, r)
	cacheStore.QueuePendingDeletion(ctx, "r2", "u1")

	svc.SyncSweep(ctx)

	if len(cacheStore.pending) != 1 {
		t.Error("failed deletion replay must stay queued")
	}
	if len(cacheStore.receipts["u1"]) != 1 {
		t.Error("failed upload must stay cached")
	}
}

func TestSyncSweepRemovesPerEntry(t *testing.T) {
	remote := newFakeRemote()
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()

	a := newReceipt("a")
	a.UserID = "u1"
	b := newReceipt("b")
	b.UserID = "u2"
	cacheStore.Upsert(ctx, a)
	cacheStore.Upsert(ctx, b)

	svc.SyncSweep(ctx)

	// Each entry is removed on its own successful write, not via a
	// whole-snapshot clear.
	if len(remote.upserted) != 2 {
		t.Fatalf("expected 2 uploads, got %v", remote.upserted)
	}
	if len(cacheStore.All(ctx)) != 0 {
		t.Errorf("all uploaded receipts should leave the cache, got %+v", cacheStore.All(ctx))
	}
}

func TestSetOnlineEdgeTriggersSweep(t *testing.T) {
	remote := newFakeRemote()
	svc := NewReceiptService(remote, newFakeCache(), nil, fixedClock)
	ctx := context.Background()

	svc.SetOnline(ctx, true)
	if !svc.Online() {
		t.Error("flag should be set")
	}
	svc.SetOnline(ctx, true) // no edge, no second sweep
	svc.SetOnline(ctx, false)
	if svc.Online() {
		t.Error("flag should be cleared")
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"scontrino/internal/cache"
	"scontrino/internal/core"
)

// fakeRemote is an in-memory RemoteStore whose failure mode is switchable
// per test.
type fakeRemote struct {
	receipts map[string]core.Receipt
	fail     bool
	deleted  []string
	upserted []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{receipts: map[string]core.Receipt{}}
}

var errRemoteDown = errors.New("remote down")

func (f *fakeRemote) List(_ context.Context, userID string) ([]core.Receipt, error) {
	if f.fail {
		return nil, errRemoteDown
	}
	out := []core.Receipt{}
	for _, r := range f.receipts {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRemote) GetByID(_ context.Context, id, userID string) (core.Receipt, error) {
	if f.fail {
		return core.Receipt{}, errRemoteDown
	}
	r, ok := f.receipts[id]
	if !ok || r.UserID != userID {
		return core.Receipt{}, core.ErrNotFound
	}
	return r, nil
}

func (f *fakeRemote) Insert(_ context.Context, r core.Receipt) (core.Receipt, error) {
	if f.fail {
		return core.Receipt{}, errRemoteDown
	}
	if r.ID == "" {
		r.ID = "remote-id"
	}
	f.receipts[r.ID] = r
	return r, nil
}

func (f *fakeRemote) Update(_ context.Context, id, userID string, patch core.ReceiptPatch) (core.Receipt, error) {
	if f.fail {
		return core.Receipt{}, errRemoteDown
	}
	existing, ok := f.receipts[id]
	if !ok || existing.UserID != userID {
		return core.Receipt{}, core.ErrNotFound
	}
	merged := patch.Apply(existing)
	f.receipts[id] = merged
	return merged, nil
}

func (f *fakeRemote) Upsert(_ context.Context, r core.Receipt) error {
	if f.fail {
		return errRemoteDown
	}
	f.receipts[r.ID] = r
	f.upserted = append(f.upserted, r.ID)
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, id, userID string) error {
	if f.fail {
		return errRemoteDown
	}
	if r, ok := f.receipts[id]; ok && r.UserID == userID {
		delete(f.receipts, id)
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) Ping(context.Context) error {
	if f.fail {
		return errRemoteDown
	}
	return nil
}

// fakeCache is an in-memory CacheStore mirroring the best-effort contract.
type fakeCache struct {
	receipts map[string][]core.Receipt
	pending  []cache.PendingDeletion
}

func newFakeCache() *fakeCache {
	return &fakeCache{receipts: map[string][]core.Receipt{}}
}

func (f *fakeCache) List(_ context.Context, userID string) []core.Receipt {
	return append([]core.Receipt{}, f.receipts[userID]...)
}

func (f *fakeCache) Upsert(_ context.Context, r core.Receipt) {
	list := f.receipts[r.UserID]
	for i := range list {
		if list[i].ID == r.ID {
			list[i] = r
			return
		}
	}
	f.receipts[r.UserID] = append(list, r)
}

func (f *fakeCache) Delete(_ context.Context, id, userID string) {
	list := f.receipts[userID]
	kept := list[:0]
	for _, r := range list {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.receipts[userID] = kept
}

func (f *fakeCache) ReplaceAll(_ context.Context, userID string, receipts []core.Receipt) {
	f.receipts[userID] = append([]core.Receipt{}, receipts...)
}

func (f *fakeCache) All(_ context.Context) []core.Receipt {
	var all []core.Receipt
	for _, list := range f.receipts {
		all = append(all, list...)
	}
	return all
}

func (f *fakeCache) QueuePendingDeletion(_ context.Context, id, userID string) {
	for _, p := range f.pending {
		if p.ID == id {
			return
		}
	}
	f.pending = append(f.pending, cache.PendingDeletion{ID: id, UserID: userID})
}

func (f *fakeCache) PendingDeletions(context.Context) []cache.PendingDeletion {
	return append([]cache.PendingDeletion{}, f.pending...)
}

func (f *fakeCache) RemovePendingDeletion(_ context.Context, id string) {
	kept := f.pending[:0]
	for _, p := range f.pending {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	f.pending = kept
}

type recordedEvent struct {
	event     string
	receiptID string
}

type fakePublisher struct {
	events []recordedEvent
}

func (f *fakePublisher) PublishReceiptEvent(_ context.Context, event, receiptID, _ string) error {
	f.events = append(f.events, recordedEvent{event, receiptID})
	return nil
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newReceipt(id string) core.Receipt {
	return core.Receipt{
		ID:          id,
		StoreName:   "Store",
		TotalAmount: decimal.NewFromInt(10),
	}
}

func TestServiceStartsOffline(t *testing.T) {
	svc := NewReceiptService(newFakeRemote(), newFakeCache(), nil, fixedClock)
	if svc.Online() {
		t.Error("service should start offline")
	}
}

func TestAddOfflineNeverFails(t *testing.T) {
	remote := newFakeRemote()
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()

	stored, err := svc.Add(ctx, "u1", newReceipt(""))
	if err != nil {
		t.Fatalf("offline add failed: %v", err)
	}
	if stored.ID == "" {
		t.Error("offline add must mint an id")
	}
	if stored.UserID != "u1" {
		t.Errorf("UserID = %q", stored.UserID)
	}
	if len(remote.receipts) != 0 {
		t.Error("offline add must not touch the remote store")
	}

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != stored.ID {
		t.Errorf("offline add not visible in list: %+v", list)
	}
}

func TestAddOnlineUsesRemote(t *testing.T) {
	remote := newFakeRemote()
	pub := &fakePublisher{}
	svc := NewReceiptService(remote, newFakeCache(), pub, fixedClock)
	ctx := context.Background()
	svc.online.Store(true) // flip without triggering a sweep

	stored, err := svc.Add(ctx, "u1", newReceipt(""))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, ok := remote.receipts[stored.ID]; !ok {
		t.Error("online add must hit the remote store")
	}
	if len(pub.events) != 1 || pub.events[0].event != EventCreated {
		t.Errorf("expected one created event, got %+v", pub.events)
	}
}

func TestAddFallsBackOnRemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.fail = true
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()
	svc.online.Store(true) // flip without triggering a sweep

	stored, err := svc.Add(ctx, "u1", newReceipt(""))
	if err != nil {
		t.Fatalf("add should fall back to cache, got %v", err)
	}
	if len(cacheStore.receipts["u1"]) != 1 {
		t.Error("fallback add must land in the cache")
	}
	if stored.ID == "" {
		t.Error("fallback add must mint an id")
	}
}

func TestAddRejectsEmptyUser(t *testing.T) {
	svc := NewReceiptService(newFakeRemote(), newFakeCache(), nil, fixedClock)

	_, err := svc.Add(context.Background(), "", newReceipt(""))
	if !errors.Is(err, core.ErrEmptyUserID) {
		t.Errorf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestUpdateFallsBackToCache(t *testing.T) {
	remote := newFakeRemote()
	remote.fail = true
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()
	svc.online.Store(true)

	r := newReceipt("r1")
	r.UserID = "u1"
	cacheStore.Upsert(ctx, r)

	name := "Patched"
	merged, err := svc.Update(ctx, "r1", "u1", core.ReceiptPatch{StoreName: &name})
	if err != nil {
		t.Fatalf("update should merge onto the cached copy, got %v", err)
	}
	if merged.StoreName != "Patched" {
		t.Errorf("StoreName = %q", merged.StoreName)
	}
	if merged.UpdatedAt.IsZero() {
		t.Error("fallback update must bump UpdatedAt")
	}
	if got := cacheStore.receipts["u1"][0]; got.StoreName != "Patched" {
		t.Error("merge must be written back to the cache")
	}
}

func TestUpdateMissingEverywhere(t *testing.T) {
	svc := NewReceiptService(newFakeRemote(), newFakeCache(), nil, fixedClock)

	name := "x"
	_, err := svc.Update(context.Background(), "ghost", "u1", core.ReceiptPatch{StoreName: &name})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteOfflineQueuesReplay(t *testing.T) {
	cacheStore := newFakeCache()
	svc := NewReceiptService(newFakeRemote(), cacheStore, nil, fixedClock)
	ctx := context.Background()

	r := newReceipt("r1")
	r.UserID = "u1"
	cacheStore.Upsert(ctx, r)

	if err := svc.Delete(ctx, "r1", "u1"); err != nil {
		t.Fatalf("offline delete failed: %v", err)
	}
	if len(cacheStore.receipts["u1"]) != 0 {
		t.Error("delete must remove the cached copy")
	}
	if len(cacheStore.pending) != 1 || cacheStore.pending[0].ID != "r1" || cacheStore.pending[0].UserID != "u1" {
		t.Errorf("delete must queue an owner-scoped replay, got %+v", cacheStore.pending)
	}

	// Deleting an unknown id offline is a no-op success.
	if err := svc.Delete(ctx, "ghost", "u1"); err != nil {
		t.Errorf("deleting unknown id should not fail: %v", err)
	}
}

func TestListOnlineMirrorsIntoCache(t *testing.T) {
	remote := newFakeRemote()
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()
	svc.online.Store(true)

	r := newReceipt("r1")
	r.UserID = "u1"
	remote.receipts["r1"] = r

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(list))
	}
	if len(cacheStore.receipts["u1"]) != 1 {
		t.Error("online list must mirror the snapshot into the cache")
	}
}

func TestListFallsBackToCache(t *testing.T) {
	remote := newFakeRemote()
	remote.fail = true
	cacheStore := newFakeCache()
	svc := NewReceiptService(remote, cacheStore, nil, fixedClock)
	ctx := context.Background()
	svc.online.Store(true)

	r := newReceipt("r1")
	r.UserID = "u1"
	cacheStore.Upsert(ctx, r)

	list, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list should fall back, got %v", err)
	}
	if len(list) != 1 || list[0].ID != "r1" {
		t.Errorf("expected the cached receipt, got %+v", list)
	}
}

func TestGetByIDFallsBackToCache(t *testing.T) {
	cacheStore := newFakeCache()
	svc := NewReceiptService(newFakeRemote(), cacheStore, nil, fixedClock)
	ctx := context.Background()

	r := newReceipt("r1")
	r.UserID = "u1"
	cacheStore.Upsert(ctx, r)

	got, err := svc.GetByID(ctx, "r1", "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ID != "r1" {
		t.Errorf("got %+v", got)
	}

	_, err = svc.GetByID(ctx, "ghost", "u1")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

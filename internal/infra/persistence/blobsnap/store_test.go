package blobsnap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"treeregistry/internal/blob"
	"treeregistry/internal/blob/core"
	"treeregistry/pkg/domain"
)

func TestStoreWritesAndReloadsLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := NewStore(ctx, blobs, domain.NewRulesEngine(), Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return clock })
	for _, name := range []string{"Oak", "Ash"} {
		clock = clock.Add(time.Second)
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.CreateSpecies(domain.Species{Name: name})
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	snaps, err := store.Snapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if !strings.HasPrefix(snaps[0].Key, fmt.Sprintf("%s%020d-20240601T000001", Prefix, 1)) || snaps[1].Metadata["format-version"] != formatVersion {
		t.Fatalf("unexpected snapshot infos %+v", snaps)
	}

	reloaded, err := NewStore(ctx, blobs, domain.NewRulesEngine(), Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(reloaded.ListSpecies()); got != 2 {
		t.Fatalf("expected 2 species from latest snapshot, got %d", got)
	}
	if reloaded.Blobs() != blobs {
		t.Fatalf("expected blob store passthrough")
	}
}

func TestStorePrunesBeyondRetention(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := NewStore(ctx, blobs, nil, Options{Retain: 2})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return clock })
	for i := 0; i < 4; i++ {
		clock = clock.Add(time.Minute)
		if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, err := tx.CreatePark(domain.Park{Name: "Park"})
			return err
		}); err != nil {
			t.Fatalf("create park: %v", err)
		}
	}
	snaps, _ := store.Snapshots(ctx)
	if len(snaps) != 2 {
		t.Fatalf("expected retention of 2, got %d", len(snaps))
	}
	if !strings.HasPrefix(snaps[0].Key, fmt.Sprintf("%s%020d-20240601T000300", Prefix, 3)) {
		t.Fatalf("expected oldest retained snapshot at minute 3, got %s", snaps[0].Key)
	}
}

func TestStoreSkipsSnapshotOnFailedTransaction(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := NewStore(ctx, blobs, nil, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(ctx, func(domain.Transaction) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if snaps, _ := store.Snapshots(ctx); len(snaps) != 0 {
		t.Fatalf("expected no snapshot written, got %d", len(snaps))
	}
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := NewStore(ctx, nil, nil, Options{}); err == nil {
		t.Fatalf("expected nil blob store error")
	}
	blobs := blob.NewMemory()
	if _, err := blobs.Put(ctx, Prefix+"20240101T000000.000000000Z-bad.json", strings.NewReader("{oops"), blob.PutOptions{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := NewStore(ctx, blobs, nil, Options{}); err == nil {
		t.Fatalf("expected decode error for corrupt snapshot")
	}
}

func TestStoreOverMockS3(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMockS3ForTests()
	store, err := NewStore(ctx, blobs, nil, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateStreet(domain.Street{Name: "Birch Lane"})
		return err
	}); err != nil {
		t.Fatalf("create street: %v", err)
	}
	reloaded, err := NewStore(ctx, blobs, nil, Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	found := false
	_ = reloaded.View(ctx, func(v domain.TransactionView) error {
		for _, st := range v.ListStreets() {
			found = found || st.Name == "Birch Lane"
		}
		return nil
	})
	if !found {
		t.Fatalf("expected street restored from s3 snapshot")
	}
}

func createSpecies(t *testing.T, store *Store, name string) {
	t.Helper()
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateSpecies(domain.Species{Name: name})
		return err
	}); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
}

func TestStoreReloadsLatestWhenClockStalls(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := NewStore(ctx, blobs, nil, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return fixed })
	for _, name := range []string{"Oak", "Ash", "Elm"} {
		createSpecies(t, store, name)
	}
	// Repeat to cover every ordering of the random key suffixes.
	for i := 0; i < 20; i++ {
		reloaded, err := NewStore(ctx, blobs, nil, Options{})
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if got := len(reloaded.ListSpecies()); got != 3 {
			t.Fatalf("expected 3 species after reload, got %d", got)
		}
	}
}

func TestStoreOrdersBySequenceWhenClockStepsBack(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := NewStore(ctx, blobs, nil, Options{Retain: 2})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.SetNowFunc(func() time.Time { return clock })
	for _, name := range []string{"Oak", "Ash", "Elm"} {
		createSpecies(t, store, name)
		clock = clock.Add(-time.Hour)
	}
	snaps, err := store.Snapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 2 || keySequence(snaps[0].Key) != 2 || keySequence(snaps[1].Key) != 3 {
		t.Fatalf("expected sequences 2 and 3 retained, got %+v", snaps)
	}

	reloaded, err := NewStore(ctx, blobs, nil, Options{Retain: 2})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(reloaded.ListSpecies()); got != 3 {
		t.Fatalf("expected 3 species after reload, got %d", got)
	}
	createSpecies(t, reloaded, "Pine")
	snaps, _ = reloaded.Snapshots(ctx)
	if last := snaps[len(snaps)-1]; keySequence(last.Key) != 4 || last.Metadata["sequence"] != "4" {
		t.Fatalf("expected sequence to continue at 4, got %+v", last)
	}
}

func TestStoreTreatsUnsequencedKeysAsOldest(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := NewStore(ctx, blobs, nil, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	createSpecies(t, store, "Oak")
	if _, err := blobs.Put(ctx, Prefix+"99991231T000000.000000000Z-legacy.json", strings.NewReader(`{}`), blob.PutOptions{}); err != nil {
		t.Fatalf("seed legacy: %v", err)
	}
	reloaded, err := NewStore(ctx, blobs, nil, Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(reloaded.ListSpecies()); got != 1 {
		t.Fatalf("expected the sequenced snapshot to win, got %d species", got)
	}
}

// failingPuts rejects writes once armed.
type failingPuts struct {
	core.Store
	fail bool
}

func (f *failingPuts) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if f.fail {
		return core.Info{}, errors.New("bucket unavailable")
	}
	return f.Store.Put(ctx, key, r, opts)
}

func TestStoreHidesTransactionWhenSnapshotWriteFails(t *testing.T) {
	ctx := context.Background()
	blobs := &failingPuts{Store: blob.NewMemory()}
	store, err := NewStore(ctx, blobs, nil, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	createSpecies(t, store, "Oak")
	blobs.fail = true
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateSpecies(domain.Species{Name: "Ash"})
		return err
	}); err == nil || !strings.Contains(err.Error(), "bucket unavailable") {
		t.Fatalf("expected write failure, got %v", err)
	}
	if got := len(store.ListSpecies()); got != 1 {
		t.Fatalf("expected failed write to leave 1 species visible, got %d", got)
	}
	blobs.fail = false
	createSpecies(t, store, "Elm")
	snaps, _ := store.Snapshots(ctx)
	if last := snaps[len(snaps)-1]; keySequence(last.Key) != 2 {
		t.Fatalf("expected failed write not to consume a sequence, got %s", last.Key)
	}
}

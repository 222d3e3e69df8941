package core

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"treeregistry/internal/blob"
	"treeregistry/internal/infra/persistence/blobsnap"
	"treeregistry/internal/infra/persistence/memory"
	"treeregistry/internal/infra/persistence/sqlite"
	"treeregistry/pkg/domain"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), StorageConfig{Driver: StorageMemory}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	store, err := OpenPersistentStore(context.Background(), StorageConfig{SQLitePath: path}, NewDefaultRulesEngine())
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	t.Cleanup(func() { _ = sq.Close() })
	if sq.Path() != path {
		t.Fatalf("expected path %s, got %s", path, sq.Path())
	}
	if _, ok := store.(io.Closer); !ok {
		t.Fatalf("expected sqlite store to be closable")
	}
}

func TestOpenPersistentStoreBlobSnapshotsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	cfg := StorageConfig{
		Driver: StorageBlob,
		Blob:   blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()},
	}
	store, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}
	if _, ok := store.(*blobsnap.Store); !ok {
		t.Fatalf("expected blobsnap store, got %T", store)
	}
	svc := NewService(store)
	if _, err := svc.CreateSpecies(ctx, "Elm", 2, 4); err != nil {
		t.Fatalf("create species: %v", err)
	}

	reopened, err := OpenPersistentStore(ctx, cfg, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	species := reopened.ListSpecies()
	if len(species) != 1 || species[0].Name != "Elm" {
		t.Fatalf("expected species restored from snapshot, got %+v", species)
	}
}

func TestOpenPersistentStoreErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenPersistentStore(ctx, StorageConfig{Driver: "bogus"}, nil); err == nil || !strings.Contains(err.Error(), "unknown storage driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
	cfg := StorageConfig{Driver: StorageBlob, Blob: blob.Config{Driver: "tape"}}
	if _, err := OpenPersistentStore(ctx, cfg, nil); err == nil {
		t.Fatalf("expected unknown blob driver error")
	}
}

func TestServiceOverSnapshotStorePersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store, err := blobsnap.NewStore(ctx, blobs, NewDefaultRulesEngine(), blobsnap.Options{Retain: 2})
	if err != nil {
		t.Fatalf("blobsnap: %v", err)
	}
	svc := NewService(store)
	if _, err := svc.EnsureDefaultStatuses(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.CreatePark(ctx, "Lafontaine"); err != nil {
		t.Fatalf("park: %v", err)
	}
	if _, err := svc.CreateSpecies(ctx, "", 1, 1); err == nil {
		t.Fatalf("expected invalid species")
	}
	snaps, err := store.Snapshots(ctx)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected two retained snapshots, got %d", len(snaps))
	}

	reloaded, err := blobsnap.NewStore(ctx, blobs, nil, blobsnap.Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	var parks []domain.Park
	_ = reloaded.View(ctx, func(v domain.TransactionView) error {
		parks = v.ListParks()
		return nil
	})
	if len(parks) != 1 || len(reloaded.ListTreeStatuses()) != 4 {
		t.Fatalf("expected latest snapshot restored, got %d parks %d statuses", len(parks), len(reloaded.ListTreeStatuses()))
	}
}

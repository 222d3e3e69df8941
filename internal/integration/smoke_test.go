package integration

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"treeregistry/internal/blob"
	"treeregistry/internal/core"
	"treeregistry/internal/infra/persistence/blobsnap"
	"treeregistry/pkg/domain"
)

type variant struct {
	name string
	cfg  func(t *testing.T) core.StorageConfig
}

// storageVariants lists every backend that runs without an external server.
func storageVariants() []variant {
	return []variant{
		{name: "memory", cfg: func(*testing.T) core.StorageConfig {
			return core.StorageConfig{Driver: core.StorageMemory}
		}},
		{name: "sqlite", cfg: func(t *testing.T) core.StorageConfig {
			return core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "registry.db")}
		}},
		{name: "blob-filesystem", cfg: func(t *testing.T) core.StorageConfig {
			return core.StorageConfig{
				Driver:         core.StorageBlob,
				Blob:           blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()},
				SnapshotRetain: 2,
			}
		}},
		{name: "blob-memory", cfg: func(*testing.T) core.StorageConfig {
			return core.StorageConfig{Driver: core.StorageBlob, Blob: blob.Config{Driver: blob.DriverMemory}}
		}},
	}
}

func open(t *testing.T, cfg core.StorageConfig) domain.PersistentStore {
	t.Helper()
	store, err := core.OpenPersistentStore(context.Background(), cfg, core.NewDefaultRulesEngine())
	if err != nil {
		if cfg.Driver == core.StorageSQLite {
			t.Skipf("sqlite unavailable: %v", err)
		}
		t.Fatalf("open %s: %v", cfg.Driver, err)
	}
	if closer, ok := store.(io.Closer); ok {
		t.Cleanup(func() { _ = closer.Close() })
	}
	return store
}

// TestRegistrySmoke runs a register, plant, aggregate, remove cycle against
// each backend and checks the exporters saw it.
func TestRegistrySmoke(t *testing.T) {
	for _, v := range storageVariants() {
		t.Run(v.name, func(t *testing.T) {
			ctx := context.Background()
			metrics := core.NewExpvarMetricsRecorder("")
			var traces bytes.Buffer
			tracer := core.NewJSONTracer(&traces, 0)
			svc := core.NewService(open(t, v.cfg(t)),
				core.WithMetricsRecorder(metrics),
				core.WithTracer(tracer),
				core.WithPasswordCost(bcrypt.MinCost),
			)

			statuses, err := svc.EnsureDefaultStatuses(ctx)
			if err != nil {
				t.Fatalf("seed statuses: %v", err)
			}
			byStatus := make(map[domain.Status]string, len(statuses))
			for _, st := range statuses {
				byStatus[st.Status] = st.ID
			}
			species, err := svc.CreateSpecies(ctx, "Maple", 3, 8)
			if err != nil {
				t.Fatalf("create species: %v", err)
			}
			user, err := svc.Register(ctx, "carol", "pw", true)
			if err != nil {
				t.Fatalf("register: %v", err)
			}
			if _, err := svc.Login(ctx, "carol", "pw"); err != nil {
				t.Fatalf("login: %v", err)
			}
			muni, err := svc.CreateMunicipality(ctx, "Laval", "")
			if err != nil {
				t.Fatalf("create municipality: %v", err)
			}

			var planted []*domain.Tree
			for _, status := range []domain.Status{domain.StatusHealthy, domain.StatusDiseased} {
				statusID := byStatus[status]
				tree, err := svc.CreateTree(ctx, core.TreeRegistration{
					Height:         4,
					Diameter:       1,
					DatePlanted:    time.Now().AddDate(-2, 0, 0),
					StatusID:       &statusID,
					SpeciesID:      &species.ID,
					UserID:         &user.ID,
					MunicipalityID: &muni.ID,
				})
				if err != nil {
					t.Fatalf("create %s tree: %v", status, err)
				}
				planted = append(planted, &tree)
			}

			oxygen, err := svc.TotalOxygenProduction(ctx, planted)
			if err != nil || oxygen != 12 {
				t.Fatalf("expected oxygen 12, got %d (%v)", oxygen, err)
			}
			carbon, err := svc.TotalCarbonConsumption(ctx, planted)
			if err != nil || carbon != 4 {
				t.Fatalf("expected carbon 4, got %d (%v)", carbon, err)
			}

			if err := svc.RemoveTree(ctx, planted[0].ID); err != nil {
				t.Fatalf("remove tree: %v", err)
			}
			remaining, err := svc.GetTreesForMunicipality(ctx, muni.ID)
			if err != nil || len(remaining) != 1 || remaining[0].ID != planted[1].ID {
				t.Fatalf("expected one remaining tree, got %+v (%v)", remaining, err)
			}

			if metrics.Snapshot()["create_tree"].Calls != 2 {
				t.Fatalf("expected create_tree metrics, got %+v", metrics.Snapshot())
			}
			var sawCreate bool
			for _, entry := range tracer.Entries() {
				if entry.Operation == "create_tree" && entry.Status == "success" {
					sawCreate = true
				}
			}
			if !sawCreate || traces.Len() == 0 {
				t.Fatalf("expected create_tree spans, got %+v", tracer.Entries())
			}
		})
	}
}

// TestRegistryReopen checks that durable backends hand the graph back after
// a restart.
func TestRegistryReopen(t *testing.T) {
	durable := map[string]func(t *testing.T) core.StorageConfig{
		"sqlite": func(t *testing.T) core.StorageConfig {
			return core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "registry.db")}
		},
		"blob-filesystem": func(t *testing.T) core.StorageConfig {
			return core.StorageConfig{Driver: core.StorageBlob, Blob: blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()}}
		},
	}
	for name, mk := range durable {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cfg := mk(t)
			first := core.NewService(open(t, cfg), core.WithPasswordCost(bcrypt.MinCost))
			if _, err := first.EnsureDefaultStatuses(ctx); err != nil {
				t.Fatalf("seed: %v", err)
			}
			if _, err := first.Register(ctx, "dave", "pw", false); err != nil {
				t.Fatalf("register: %v", err)
			}

			second := core.NewService(open(t, cfg), core.WithPasswordCost(bcrypt.MinCost))
			created, err := second.EnsureDefaultStatuses(ctx)
			if err != nil || len(created) != 0 {
				t.Fatalf("expected statuses to survive reopen, created %d (%v)", len(created), err)
			}
			if _, err := second.Login(ctx, "dave", "pw"); err != nil {
				t.Fatalf("login after reopen: %v", err)
			}
		})
	}
}

func TestSnapshotsOverMockS3(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMockS3ForTests()
	store, err := blobsnap.NewStore(ctx, blobs, core.NewDefaultRulesEngine(), blobsnap.Options{Retain: 1})
	if err != nil {
		t.Fatalf("open snapshot store: %v", err)
	}
	svc := core.NewService(store)
	if _, err := svc.CreatePark(ctx, "Parc Jarry"); err != nil {
		t.Fatalf("create park: %v", err)
	}
	if _, err := svc.CreateStreet(ctx, "Rue Ontario"); err != nil {
		t.Fatalf("create street: %v", err)
	}
	snaps, err := store.Snapshots(ctx)
	if err != nil || len(snaps) != 1 {
		t.Fatalf("expected one retained snapshot, got %d (%v)", len(snaps), err)
	}

	reopened, err := blobsnap.NewStore(ctx, blobs, core.NewDefaultRulesEngine(), blobsnap.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	parks, err := core.NewService(reopened).FindAllParks(ctx)
	if err != nil || len(parks) != 1 || parks[0].Name != "Parc Jarry" {
		t.Fatalf("expected park restored from s3 snapshot, got %+v (%v)", parks, err)
	}
}

package mysql

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"treeregistry/internal/infra/persistence/memory"
	"treeregistry/internal/infra/persistence/sqlstub"
	"treeregistry/pkg/domain"
)

func TestNormalizeDSNForcesParseTime(t *testing.T) {
	dsn, err := NormalizeDSN("user:pw@tcp(db:3306)/trees")
	if err != nil {
		t.Fatalf("NormalizeDSN: %v", err)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("expected parseTime in %q", dsn)
	}
	if !strings.Contains(dsn, "tcp(db:3306)/trees") {
		t.Fatalf("expected address and database preserved in %q", dsn)
	}
	if _, err := NormalizeDSN("user@tcp(db:3306)/trees?parseTime=maybe"); err == nil {
		t.Fatalf("expected invalid bool param to fail")
	}
}

func TestStorePersistsAndReloadsThroughStub(t *testing.T) {
	db, conn := sqlstub.NewDB()
	var gotDSN string
	restore := OverrideSQLOpen(func(_, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return db, nil
	})
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if !strings.Contains(gotDSN, "parseTime=true") {
		t.Fatalf("expected normalized dsn, got %q", gotDSN)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateSpecies(domain.Species{Name: "Maple", CarbonConsumption: 2, OxygenProduction: 3})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
	rows := conn.Rows("state")
	if len(rows) != len(memory.BucketNames()) {
		t.Fatalf("expected one row per bucket, got %d", len(rows))
	}

	reloaded, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	species := reloaded.ListSpecies()
	if len(species) != 1 || species[0].Name != "Maple" {
		t.Fatalf("expected species reloaded, got %+v", species)
	}
}

func TestStorePersistFailureSurfaces(t *testing.T) {
	db, conn := sqlstub.NewDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore("", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	conn.FailBegin = true
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateSpecies(domain.Species{Name: "Maple"})
		return err
	}); err == nil {
		t.Fatalf("expected begin failure")
	}
	if got := len(store.ListSpecies()); got != 0 {
		t.Fatalf("expected unpersisted species to stay hidden, got %d", got)
	}
}

func TestLiveMySQLRoundTrip(t *testing.T) {
	dsn := os.Getenv("TREEREGISTRY_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skipf("TREEREGISTRY_TEST_MYSQL_DSN not set")
	}
	store, err := NewStore(dsn, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateStreet(domain.Street{Name: "Live"})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}
}

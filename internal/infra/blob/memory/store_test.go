package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"treeregistry/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.SetNowFunc(func() time.Time { return fixed })
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}

	info, err := s.Put(ctx, "snapshots/one.json", strings.NewReader("{}"), core.PutOptions{ContentType: "application/json", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 2 || info.ETag == "" || !info.LastModified.Equal(fixed) {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "snapshots/one.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "snapshots/one.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "{}" || got.Metadata["k"] != "v" {
		t.Fatalf("unexpected get result %q %+v", body, got)
	}
	got.Metadata["k"] = "mutated"
	head, err := s.Head(ctx, "snapshots/one.json")
	if err != nil || head.Metadata["k"] != "v" {
		t.Fatalf("expected metadata isolation, got %+v %v", head, err)
	}

	if _, err := s.Put(ctx, "other/two.json", strings.NewReader("2"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	listed, _ := s.List(ctx, "snapshots/")
	if len(listed) != 1 || listed[0].Key != "snapshots/one.json" {
		t.Fatalf("unexpected list %+v", listed)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 || all[0].Key != "other/two.json" {
		t.Fatalf("expected sorted listing, got %+v", all)
	}

	if ok, _ := s.Delete(ctx, "snapshots/one.json"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "snapshots/one.json"); ok {
		t.Fatalf("expected second delete to report missing")
	}
	if _, err := s.Head(ctx, "snapshots/one.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestMemoryStoreRejectsBadKeysAndPresign(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "../escape", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected invalid key error")
	}
	if _, err := s.Delete(ctx, "/abs"); err == nil {
		t.Fatalf("expected invalid key error on delete")
	}
	if _, err := s.PresignURL(ctx, "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := s.Put(cancelled, "k", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}

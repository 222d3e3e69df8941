package blob

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: filepath.Join(t.TempDir(), "blobs")})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("expected default fs driver, got %s", fsStore.Driver())
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %v %v", mem, err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Fatalf("expected s3 bucket error, got %v", err)
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if NewMockS3ForTests().Driver() != DriverS3 {
		t.Fatalf("expected mock s3 driver")
	}
}

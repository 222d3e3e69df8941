package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"treeregistry/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "treeregistry.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestCLIServesUntilCancelled(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("TREEREGISTRY_STORAGE_DRIVER", "")
	t.Setenv("TREEREGISTRY_HTTP_ADDR", "")
	path := writeConfig(t, "http:\n  addr: \"127.0.0.1:0\"\nstorage:\n  driver: memory\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stderr bytes.Buffer
	if code := cli(ctx, []string{"-config", path}, &stderr); code != 0 {
		t.Fatalf("expected clean exit, got %d: %s", code, stderr.String())
	}
}

func TestCLIReportsBadConfig(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("TREEREGISTRY_STORAGE_DRIVER", "floppy")
	var stderr bytes.Buffer
	if code := cli(context.Background(), nil, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "unknown storage driver") {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestCLIRejectsUnknownFlag(t *testing.T) {
	var stderr bytes.Buffer
	if code := cli(context.Background(), []string{"-nope"}, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestServeReportsListenError(t *testing.T) {
	err := serve(context.Background(), "256.0.0.1:bad", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "listen") {
		t.Fatalf("expected listen error, got %v", err)
	}
}

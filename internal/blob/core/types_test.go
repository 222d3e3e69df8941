package core

import "testing"

func TestValidateKey(t *testing.T) {
	valid := map[string]string{
		"snapshots/a.json":    "snapshots/a.json",
		"snapshots//b.json":   "snapshots/b.json",
		"snapshots/./c..json": "snapshots/c..json",
	}
	for in, want := range valid {
		got, err := ValidateKey(in)
		if err != nil {
			t.Fatalf("ValidateKey(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ValidateKey(%q) = %q, want %q", in, got, want)
		}
	}
	for _, bad := range []string{"", "   ", "/abs", "../up", "a/../../b"} {
		if _, err := ValidateKey(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestCloneMetadataCopies(t *testing.T) {
	if CloneMetadata(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	src := map[string]string{"k": "v"}
	cp := CloneMetadata(src)
	cp["k"] = "changed"
	if src["k"] != "v" {
		t.Fatalf("expected copy to be independent")
	}
}

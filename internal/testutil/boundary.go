// Package testutil holds helpers that keep package boundaries honest: the
// domain stays free of storage concerns and adapters reach storage only
// through the service.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// AssertNoDirectImports parses the non-test .go files in dir and fails t if
// any import matches forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := DirectImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// DirectImportViolations returns "import (in file)" entries for every
// forbidden import in dir, sorted.
func DirectImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if forbidden(path) {
				viols = append(viols, path+" (in "+name+")")
			}
		}
	}
	sort.Strings(viols)
	return viols, nil
}

// InternalImport matches any package under treeregistry/internal.
func InternalImport(path string) bool {
	return strings.HasPrefix(path, "treeregistry/internal/")
}

// StorageImport matches the persistence layer and the database or object
// store drivers behind it.
func StorageImport(path string) bool {
	switch {
	case strings.HasPrefix(path, "treeregistry/internal/infra/"):
		return true
	case path == "database/sql", strings.HasPrefix(path, "database/sql/"):
		return true
	case strings.HasPrefix(path, "github.com/jackc/pgx"),
		strings.HasPrefix(path, "github.com/go-sql-driver/mysql"),
		strings.HasPrefix(path, "modernc.org/sqlite"),
		strings.HasPrefix(path, "github.com/aws/aws-sdk-go-v2"):
		return true
	}
	return false
}

// AnyOf matches when at least one predicate does.
func AnyOf(preds ...func(string) bool) func(string) bool {
	return func(path string) bool {
		for _, p := range preds {
			if p(path) {
				return true
			}
		}
		return false
	}
}

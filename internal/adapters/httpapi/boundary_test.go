package httpapi

import (
	"testing"

	"treeregistry/internal/testutil"
)

func TestHandlersReachStorageOnlyThroughService(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StorageImport, "http adapters go through core.Service")
}

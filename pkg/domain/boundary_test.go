package domain_test

import (
	"strings"
	"testing"

	"treeregistry/internal/testutil"
)

func TestDomainImportsOnlyStandardLibrary(t *testing.T) {
	thirdParty := func(path string) bool {
		first := strings.SplitN(path, "/", 2)[0]
		return strings.Contains(first, ".")
	}
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.InternalImport, thirdParty),
		"domain types are shared by every layer")
}

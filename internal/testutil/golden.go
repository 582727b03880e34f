package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/k14s/difflib"
	"github.com/stretchr/testify/require"
)

// AssertGolden compares actual with the contents of the golden file at
// path. With UPDATE_GOLDEN=1 the file is rewritten instead.
func AssertGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") == "1" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(actual), 0o644))
		return
	}

	expected, err := os.ReadFile(path)
	require.NoError(t, err, "missing golden file; run with UPDATE_GOLDEN=1 to create it")

	if string(expected) != actual {
		diff := difflib.PPDiff(strings.Split(string(expected), "\n"), strings.Split(actual, "\n"))
		t.Fatalf("output does not match %s:\n%s", path, diff)
	}
}

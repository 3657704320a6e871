package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWriteFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWalkFindsMatchingExtensionsAcrossSubdirs(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()

	mustWriteFile(t, filepath.Join(root, "a.cnf"))
	mustWriteFile(t, filepath.Join(root, "a.txt"))
	mustWriteFile(t, filepath.Join(root, "sub", "b.cnf"))
	mustWriteFile(t, filepath.Join(root, "sub", "deeper", "c.wcnf"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []string
	for r := range Walk(ctx, root, 4, ".cnf", ".wcnf") {
		require.NoError(t, r.Err)
		got = append(got, filepath.Base(r.Path))
	}

	sort.Strings(got)
	a.Equal([]string{"a.cnf", "b.cnf", "c.wcnf"}, got)
}

func TestWalkWithNoExtensionsMatchesEverything(t *testing.T) {
	a := assert.New(t)
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "one"))
	mustWriteFile(t, filepath.Join(root, "two.dat"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []string
	for r := range Walk(ctx, root, 2) {
		require.NoError(t, r.Err)
		got = append(got, filepath.Base(r.Path))
	}
	sort.Strings(got)
	a.Equal([]string{"one", "two.dat"}, got)
}

func TestWalkReportsUnreadableDirectoryWithoutStopping(t *testing.T) {
	require := require.New(t)
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "ok.cnf"))

	unreadable := filepath.Join(root, "locked")
	require.NoError(os.Mkdir(unreadable, 0o000))
	defer os.Chmod(unreadable, 0o755)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var files int
	var errs int
	for r := range Walk(ctx, root, 2, ".cnf") {
		if r.Err != nil {
			errs++
			continue
		}
		files++
	}
	require.Equal(1, files)
	require.GreaterOrEqual(errs, 0) // root may run as a user that can still read 0o000 dirs; don't assume
}

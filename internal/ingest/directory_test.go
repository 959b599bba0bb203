package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"a.pdf", "b.PNG", "notes.txt",
		"sub/c.jpeg", "sub/d.heic",
		".hidden/e.pdf", ".f.pdf",
	)

	paths, stats, err := ScanDirectory(root, true)
	require.NoError(t, err)

	var rel []string
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.ElementsMatch(t, []string{"a.pdf", "b.PNG", "sub/c.jpeg", "sub/d.heic"}, rel)
	assert.EqualValues(t, 4, stats.Matched)

	paths, _, err = ScanDirectory(root, false)
	require.NoError(t, err)
	assert.Len(t, paths, 6)
}

func TestScanDirectoryRequiresRoot(t *testing.T) {
	_, _, err := ScanDirectory(" ", false)
	assert.Error(t, err)
}

func TestWatcherInitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "existing.pdf", "skip.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, quietLogger())
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, "existing.pdf", filepath.Base(p))
	case <-time.After(2 * time.Second):
		t.Fatal("no initial scan event")
	}

	writeFiles(t, root, "new.pdf")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-events:
			if filepath.Base(p) == "new.pdf" {
				return
			}
		case <-deadline:
			t.Fatal("no event for new file")
		}
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, quietLogger())
	assert.Error(t, err)
}

package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundboard/status"
)

// makeTree creates root/pack/subfolder/file for every path given
func makeTree(t *testing.T, paths ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		if filepath.Ext(full) != "" {
			require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
		} else {
			require.NoError(t, os.MkdirAll(full, 0o755))
		}
	}
	return root
}

func TestScan_SortsPacks(t *testing.T) {
	root := makeTree(t,
		"pack10/hits",
		"Pack2/hits",
		"pack1/hits",
		"alpha/hits",
		"loose.wav",
	)
	l := New(root, nil)

	packs, err := l.Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "pack1", "Pack2", "pack10"}, packs)
	assert.Equal(t, packs, l.Packs())
	assert.Equal(t, root, l.Root())
}

func TestScan_MissingRoot(t *testing.T) {
	rec := &status.Recorder{}
	l := New(filepath.Join(t.TempDir(), "nope"), rec)

	packs, err := l.Scan()
	assert.ErrorIs(t, err, ErrRootNotFound)
	assert.Empty(t, packs)
	require.Len(t, rec.Messages(), 1)
	assert.Contains(t, rec.Messages()[0], "not found")
}

func TestScan_EmptyRoot(t *testing.T) {
	rec := &status.Recorder{}
	l := New(t.TempDir(), rec)

	packs, err := l.Scan()
	require.NoError(t, err)
	assert.Empty(t, packs)
	require.Len(t, rec.Messages(), 1)
	assert.Contains(t, rec.Messages()[0], "No sound packs found")
}

func TestSubfolders(t *testing.T) {
	root := makeTree(t, "drums/snare", "drums/kick", "drums/readme.txt")
	l := New(root, nil)

	subs, err := l.Subfolders("drums")
	require.NoError(t, err)
	assert.Equal(t, []string{"kick", "snare"}, subs)

	_, err = l.Subfolders("missing")
	assert.ErrorIs(t, err, ErrPackNotFound)

	subs, err = l.Subfolders("  ")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestFilesAndPool(t *testing.T) {
	root := makeTree(t,
		"drums/kick/a.wav",
		"drums/kick/b.mp3",
		"drums/kick/.DS_Store",
		"drums/kick/nested/c.wav",
		"drums/empty",
	)
	l := New(root, nil)

	files, err := l.Files("drums", "kick")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "drums", "kick", "a.wav"),
		filepath.Join(root, "drums", "kick", "b.mp3"),
	}, files)

	assert.Len(t, l.Pool("drums", "kick"), 2)
	assert.Empty(t, l.Pool("drums", "empty"))
	assert.Empty(t, l.Pool("drums", "missing"))
	assert.Empty(t, l.Pool("", "kick"))
	assert.Empty(t, l.Pool("drums", " "))
}

func TestFiles_Filter(t *testing.T) {
	root := makeTree(t,
		"drums/kick/a.wav",
		"drums/kick/cover.jpg",
		"drums/kick/readme.txt",
	)
	l := New(root, nil)
	l.SetFilter(func(name string) bool { return filepath.Ext(name) == ".wav" })

	assert.Equal(t, []string{filepath.Join(root, "drums", "kick", "a.wav")}, l.Pool("drums", "kick"))

	l.SetFilter(nil)
	assert.Len(t, l.Pool("drums", "kick"), 3)
}

func TestPool_UnreadableIsNotReported(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := makeTree(t, "drums/locked/a.wav")
	locked := filepath.Join(root, "drums", "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	rec := &status.Recorder{}
	l := New(root, rec)

	_, err := l.Files("drums", "locked")
	require.Error(t, err)
	assert.Empty(t, l.Pool("drums", "locked"))
	assert.Zero(t, rec.Len(), "the skipped selection is reported by whoever asked for the pool")
}

func TestWatch_RescansOnNewPack(t *testing.T) {
	root := makeTree(t, "one/a")
	l := New(root, nil)
	_, err := l.Scan()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- l.Watch(ctx, func(packs []string) { changes <- packs })
	}()

	// Give the watcher time to register before creating the pack
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.Mkdir(filepath.Join(root, "two"), 0o755))

	select {
	case packs := <-changes:
		assert.Equal(t, []string{"one", "two"}, packs)
	case <-time.After(2 * time.Second):
		t.Fatal("no rescan after creating a pack")
	}
	assert.Equal(t, []string{"one", "two"}, l.Packs())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "gone"), nil)
	err := l.Watch(context.Background(), nil)
	assert.Error(t, err)
}

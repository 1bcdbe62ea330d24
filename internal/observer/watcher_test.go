package observer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vizier-sh/vizier/internal/schema"
	"go.uber.org/zap"
)

func newTestWatcher(t *testing.T, root string) *fsWatcher {
	t.Helper()
	fw, err := newFSWatcher(root, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fw.close() })
	return fw
}

func drainEventually(t *testing.T, fw *fsWatcher, match func(schema.FSEvent) bool) schema.FSEvent {
	t.Helper()
	var found schema.FSEvent
	require.Eventually(t, func() bool {
		for _, ev := range fw.drain() {
			if match(ev) {
				found = ev
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
	return found
}

func TestWatcherRecordsCreate(t *testing.T) {
	root := t.TempDir()
	fw := newTestWatcher(t, root)

	target := filepath.Join(root, "fresh.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	ev := drainEventually(t, fw, func(ev schema.FSEvent) bool {
		return ev.Path == target && ev.Kind == schema.FSEventCreate
	})
	assert.Greater(t, ev.TS, 0.0)
}

func TestWatcherRecordsDelete(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "doomed.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	fw := newTestWatcher(t, root)
	require.NoError(t, os.Remove(target))

	drainEventually(t, fw, func(ev schema.FSEvent) bool {
		return ev.Path == target && ev.Kind == schema.FSEventDelete
	})
}

func TestWatcherDrainAdvancesCursor(t *testing.T) {
	root := t.TempDir()
	fw := newTestWatcher(t, root)

	target := filepath.Join(root, "once.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	drainEventually(t, fw, func(ev schema.FSEvent) bool {
		return ev.Path == target
	})

	// Quiet period, then a drain must come back empty: events are reported
	// exactly once.
	time.Sleep(100 * time.Millisecond)
	for _, ev := range fw.drain() {
		assert.NotEqual(t, target, ev.Path)
	}
}

func TestWatcherCoversNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	fw := newTestWatcher(t, root)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Creation of the directory itself is observed, and the directory joins
	// the watch set.
	drainEventually(t, fw, func(ev schema.FSEvent) bool {
		return ev.Path == sub && ev.Kind == schema.FSEventCreate
	})

	inner := filepath.Join(sub, "inner.txt")
	require.NoError(t, os.WriteFile(inner, []byte("x"), 0o644))

	drainEventually(t, fw, func(ev schema.FSEvent) bool {
		return ev.Path == inner && ev.Kind == schema.FSEventCreate
	})
}

func TestWatcherMissingRoot(t *testing.T) {
	_, err := newFSWatcher(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	assert.Error(t, err)
}

func TestMapEventKind(t *testing.T) {
	assert.Equal(t, schema.FSEventCreate, mapEventKind(fsnotify.Create))
	assert.Equal(t, schema.FSEventDelete, mapEventKind(fsnotify.Remove))
	assert.Equal(t, schema.FSEventRename, mapEventKind(fsnotify.Rename))
	assert.Equal(t, schema.FSEventModify, mapEventKind(fsnotify.Write))
	assert.Equal(t, schema.FSEventModify, mapEventKind(fsnotify.Chmod))
	// Create wins when an op carries several bits.
	assert.Equal(t, schema.FSEventCreate, mapEventKind(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, "", mapEventKind(0))
}

func TestCountSeparators(t *testing.T) {
	assert.Equal(t, 0, countSeparators("a"))
	assert.Equal(t, 1, countSeparators(filepath.Join("a", "b")))
	assert.Equal(t, 2, countSeparators(filepath.Join("a", "b", "c")))
}

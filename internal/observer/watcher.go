package observer

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vizier-sh/vizier/internal/schema"
	"go.uber.org/zap"
)

// watchDirDepth bounds how deep under the watch root directories are
// registered. fsnotify watches are per-directory, so the initial walk and
// later Create events keep the registered set bounded.
const watchDirDepth = 2

// fsWatcher owns the filesystem-event cursor: the marker of "events already
// reported". Events arrive on a background goroutine and accumulate in a
// bounded ring; drain returns them and advances the cursor in one step.
// Exactly one Observer owns an fsWatcher; access is serialized by the
// Observer's poll mutex plus the ring's internal lock.
type fsWatcher struct {
	watcher *fsnotify.Watcher
	log     *zap.Logger
	pending *eventRing

	done chan struct{}
}

func newFSWatcher(root string, log *zap.Logger) (*fsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fsWatcher{
		watcher: w,
		log:     log,
		pending: newEventRing(defaultEventRingSize),
		done:    make(chan struct{}),
	}

	if err := fw.addTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}

	go fw.run()
	return fw, nil
}

// addTree registers root and its subdirectories down to watchDirDepth.
func (fw *fsWatcher) addTree(root string) error {
	if err := fw.watcher.Add(root); err != nil {
		return err
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fs.SkipDir
		}
		depth := 1 + countSeparators(rel)
		if depth > watchDirDepth {
			return fs.SkipDir
		}
		// Unwatchable subdirectories degrade silently; the root watch
		// already succeeded.
		if addErr := fw.watcher.Add(path); addErr != nil {
			fw.log.Debug("watch add failed", zap.String("path", path), zap.Error(addErr))
		}
		return nil
	})

	return nil
}

func countSeparators(rel string) int {
	n := 0
	for _, r := range rel {
		if r == filepath.Separator {
			n++
		}
	}
	return n
}

func (fw *fsWatcher) run() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.record(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Debug("watch error", zap.Error(err))
		}
	}
}

func (fw *fsWatcher) record(event fsnotify.Event) {
	kind := mapEventKind(event.Op)
	if kind == "" {
		return
	}

	// Newly created directories join the watch set so the subtree stays
	// covered across polls.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.watcher.Add(event.Name); err != nil {
				fw.log.Debug("watch add failed", zap.String("path", event.Name), zap.Error(err))
			}
		}
	}

	fw.pending.push(schema.FSEvent{
		Path: event.Name,
		Kind: kind,
		TS:   float64(time.Now().UnixNano()) / 1e9,
	})
}

func mapEventKind(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return schema.FSEventCreate
	case op.Has(fsnotify.Remove):
		return schema.FSEventDelete
	case op.Has(fsnotify.Rename):
		return schema.FSEventRename
	case op.Has(fsnotify.Write), op.Has(fsnotify.Chmod):
		return schema.FSEventModify
	default:
		return ""
	}
}

// drain returns all events recorded since the previous drain and advances
// the cursor past them.
func (fw *fsWatcher) drain() []schema.FSEvent {
	return fw.pending.drain()
}

func (fw *fsWatcher) close() error {
	close(fw.done)
	return fw.watcher.Close()
}

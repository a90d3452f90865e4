package visualization

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a FileWatcher waits for writes to settle.
const DefaultDebounce = 150 * time.Millisecond

// FileWatcher calls a function when one file changes. It watches the
// file's directory rather than the file, so editors that save by renaming
// a temp file over the original are still seen. Bursts of events within
// the debounce window produce a single call.
type FileWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	watcher  *fsnotify.Watcher
}

// NewFileWatcher starts watching path. Events are delivered once Run is called.
func NewFileWatcher(path string, debounce time.Duration, onChange func()) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{path: abs, debounce: debounce, onChange: onChange, watcher: w}, nil
}

// Run delivers debounced change notifications until ctx is cancelled or
// the watcher is closed. It returns the first watcher error, or nil.
func (fw *FileWatcher) Run(ctx context.Context) error {
	defer fw.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				timer.Reset(fw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			fw.onChange()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", fw.path, err)
		}
	}
}

// Close stops the watcher; a running Run returns.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

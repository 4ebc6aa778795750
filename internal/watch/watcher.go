// Package watch rebuilds the site when files under the content directory
// change. Bursts of events are coalesced: a rebuild runs once the tree has
// been quiet for the debounce window, or at the latest after the max delay.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	derrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

// Options configure a Watcher.
type Options struct {
	QuietWindow time.Duration
	MaxDelay    time.Duration
	Logger      *slog.Logger
}

// Watcher triggers onChange after content changes.
type Watcher struct {
	root     string
	onChange func(context.Context) error
	opts     Options
	logger   *slog.Logger

	fsw       *fsnotify.Watcher
	readyOnce sync.Once
	ready     chan struct{}
}

// New watches root recursively. onChange is called from a single goroutine,
// never concurrently with itself.
func New(root string, onChange func(context.Context) error, opts Options) (*Watcher, error) {
	if onChange == nil {
		return nil, derrors.ValidationError("change callback is required").Build()
	}
	if opts.QuietWindow <= 0 {
		opts.QuietWindow = 500 * time.Millisecond
	}
	if opts.MaxDelay < opts.QuietWindow {
		opts.MaxDelay = 10 * opts.QuietWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create file watcher").Build()
	}
	return &Watcher{
		root:     root,
		onChange: onChange,
		opts:     opts,
		logger:   opts.Logger,
		fsw:      fsw,
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the initial directory tree is being watched.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run watches until ctx is cancelled. A rebuild that is due when ctx ends is
// dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	if err := os.MkdirAll(w.root, 0o750); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "create watched directory").
			WithContext("path", w.root).
			Build()
	}
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("Watching content for changes", logfields.Path(w.root))
	w.readyOnce.Do(func() { close(w.ready) })

	quiet := stoppedTimer()
	deadline := stoppedTimer()
	pending := false

	fire := func() {
		pending = false
		quiet.Stop()
		deadline.Stop()
		if err := w.onChange(ctx); err != nil {
			w.logger.Error("Rebuild after content change failed", logfields.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			w.logger.Debug("Content change", logfields.File(ev.Name), logfields.Action(ev.Op.String()))
			quiet.Reset(w.opts.QuietWindow)
			if !pending {
				pending = true
				deadline.Reset(w.opts.MaxDelay)
			}
		case <-quiet.C:
			fire()
		case <-deadline.C:
			fire()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Content watcher error", logfields.Error(err))
		}
	}
}

// relevant drops editor swap files, hidden files and chmod-only events.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") &&
		!strings.HasSuffix(base, ".swp") && !strings.HasSuffix(base, ".tmp")
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path != dir && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "watch directory").
				WithContext("path", path).
				Build()
		}
		return nil
	})
}

func stoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

package ruledoc

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/quailbyte/ruledup/internal/debug"
	"github.com/quailbyte/ruledup/internal/types"
)

// ReloadFunc receives the outcome of a rescan triggered by file
// changes. err carries per-document failures (a MultiError) or a walk
// failure; rules holds whatever parsed either way.
type ReloadFunc func(rules []types.Rule, err error)

// Watcher watches a pool directory and rescans it once file events
// settle. Events are debounced as a whole rather than per path: any
// change invalidates the pool, and a full rescan is cheap at the pool
// sizes the detector is built for.
type Watcher struct {
	root     string
	opts     Options
	exclude  []string // resolved at construction, gitignore folded in
	debounce time.Duration
	reload   ReloadFunc

	fsw    *fsnotify.Watcher
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewWatcher prepares a watcher over root. A debounce at or below zero
// falls back to 300ms. Call Start to begin delivering reloads.
func NewWatcher(root string, opts Options, debounce time.Duration, reload ReloadFunc) (*Watcher, error) {
	if reload == nil {
		return nil, fmt.Errorf("watcher: nil reload callback")
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		root:     root,
		opts:     opts,
		exclude:  opts.excludes(root),
		debounce: debounce,
		reload:   reload,
		fsw:      fsw,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds recursive watches and begins processing events.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.root); err != nil {
		w.fsw.Close()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.wg.Add(1)
	go w.run()
	debug.LogScan("watching %s (debounce %s)\n", w.root, w.debounce)
	return nil
}

// Stop ends event processing and releases the OS watches. A rescan
// already past its debounce may still deliver after Stop returns.
func (w *Watcher) Stop() {
	w.cancel()
	w.fsw.Close()
	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()
	w.wg.Wait()
}

// addWatches registers dir and every subdirectory that is not
// excluded. fsnotify has no recursive mode, so directories created
// later are added as their create events arrive.
func (w *Watcher) addWatches(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == dir {
				return walkErr
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, rerr := filepath.Rel(w.root, p); rerr == nil {
			rel = filepath.ToSlash(rel)
			if rel != "." && matchesDir(w.exclude, rel) {
				return fs.SkipDir
			}
		}
		if werr := w.fsw.Add(p); werr != nil {
			debug.LogScan("watch %s: %v\n", p, werr)
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			debug.LogScan("watch error: %v\n", err)
		}
	}
}

// handleEvent filters one fsnotify event and schedules a rescan when
// it touches the pool. New directories join the watch set immediately
// so documents created inside them are seen.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Op.Has(fsnotify.Create) {
		if fi, serr := os.Stat(ev.Name); serr == nil && fi.IsDir() {
			if !matchesDir(w.exclude, rel) {
				_ = w.addWatches(ev.Name)
				w.scheduleRescan()
			}
			return
		}
	}
	// A removed path cannot be stat'ed, so removals and renames always
	// count unless excluded. The debounce absorbs the false positives.
	if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
		if !matchAny(w.exclude, rel) && !matchesDir(w.exclude, rel) {
			w.scheduleRescan()
		}
		return
	}
	if w.relevant(rel) {
		w.scheduleRescan()
	}
}

// relevant reports whether a changed path is a pool document.
func (w *Watcher) relevant(rel string) bool {
	return matchAny(w.opts.includes(), rel) && !matchAny(w.exclude, rel)
}

// scheduleRescan (re)arms the debounce timer.
func (w *Watcher) scheduleRescan() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.rescan)
}

// rescan runs one full scan and hands the outcome to the callback.
func (w *Watcher) rescan() {
	if w.ctx.Err() != nil {
		return
	}
	rules, err := Scan(w.root, w.opts)
	debug.LogScan("rescan of %s: %d rules\n", w.root, len(rules))
	w.reload(rules, err)
}

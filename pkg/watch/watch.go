// Package watch reports chat exports that appear or change in a directory,
// once each file has been quiet for a debounce period.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/stylectl/pkg/logger"
)

const (
	// DefaultDebounce is how long a file must stay unchanged before it is
	// reported. Exports are often written in several chunks.
	DefaultDebounce = 2 * time.Second

	tick = 100 * time.Millisecond
)

// Config configures a Watcher.
type Config struct {
	Dir string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// Match selects the files to report. Defaults to IsExport.
	Match func(path string) bool

	// OnReady is called from the Run goroutine with each settled path.
	OnReady func(path string)

	Logger *slog.Logger
}

// Watcher watches one directory, non-recursively.
type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
}

// IsExport reports whether path names a visible .csv file.
func IsExport(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".csv")
}

// New validates cfg and starts watching cfg.Dir.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnReady == nil {
		return nil, errors.New("watch: OnReady is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Match == nil {
		cfg.Match = IsExport
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", cfg.Dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating watcher: %w", err)
	}
	if err := fw.Add(cfg.Dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch: adding %s: %w", cfg.Dir, err)
	}

	return &Watcher{
		cfg:     cfg,
		watcher: fw,
		pending: map[string]time.Time{},
	}, nil
}

// Existing lists the matching files already in dir, sorted by name.
func Existing(dir string, match func(string) bool) ([]string, error) {
	if match == nil {
		match = IsExport
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.Type().IsRegular() && match(path) {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Run delivers settled files until ctx is done. It returns nil on
// cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Warn("watch error", "dir", w.cfg.Dir, "error", err)

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				w.cfg.OnReady(path)
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !w.cfg.Match(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.pending[event.Name] = time.Now()
		w.cfg.Logger.Debug("export changed", "path", event.Name, "op", event.Op.String())
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, event.Name)
	}
}

// settled removes and returns the pending paths quiet for the debounce
// period, sorted for a stable upload order.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	slices.Sort(ready)
	return ready
}

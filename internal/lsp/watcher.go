package lsp

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/chris-regnier/sharplint/internal/config"
)

// WatcherConfig holds configuration for the debounced watcher
type WatcherConfig struct {
	DebounceDuration time.Duration
	ParallelFiles    int
	WatchPatterns    []string
	IgnorePatterns   []string
}

// DefaultWatcherConfig watches C# sources outside build output.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceDuration: 300 * time.Millisecond,
		ParallelFiles:    3,
		WatchPatterns:    []string{"**/*.cs"},
		IgnorePatterns:   []string{"**/bin/**", "**/obj/**", "**/.git/**", "**/.sharplint/**"},
	}
}

// WatcherConfigFromConfig applies the lsp section of cfg over the defaults.
// Invalid durations keep the default.
func WatcherConfigFromConfig(cfg config.LSPConfig) WatcherConfig {
	wc := DefaultWatcherConfig()
	if d, err := time.ParseDuration(cfg.Debounce); err == nil && d > 0 {
		wc.DebounceDuration = d
	}
	if cfg.ParallelFiles > 0 {
		wc.ParallelFiles = cfg.ParallelFiles
	}
	if len(cfg.Watch) > 0 {
		wc.WatchPatterns = cfg.Watch
	}
	if len(cfg.Ignore) > 0 {
		wc.IgnorePatterns = cfg.Ignore
	}
	return wc
}

// pathFilter matches slash-separated paths against watch and ignore globs.
type pathFilter struct {
	watch  []glob.Glob
	ignore []glob.Glob
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(filepath.ToSlash(p), '/')
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func newPathFilter(watch, ignore []string) (pathFilter, error) {
	w, err := compilePatterns(watch)
	if err != nil {
		return pathFilter{}, err
	}
	i, err := compilePatterns(ignore)
	if err != nil {
		return pathFilter{}, err
	}
	return pathFilter{watch: w, ignore: i}, nil
}

func (f pathFilter) match(path string) bool {
	p := filepath.ToSlash(strings.TrimPrefix(path, "file://"))
	for _, g := range f.ignore {
		if g.Match(p) {
			return false
		}
	}
	if len(f.watch) == 0 {
		return true
	}
	for _, g := range f.watch {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// DebouncedWatcher batches file changes and triggers analysis once changes
// stop for the debounce duration.
type DebouncedWatcher struct {
	onTrigger func(files []string)

	mu      sync.Mutex
	config  WatcherConfig
	filter  pathFilter
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
}

// NewDebouncedWatcher creates a watcher. onTrigger receives the changed
// files in sorted order, at most ParallelFiles calls at a time.
func NewDebouncedWatcher(cfg WatcherConfig, onTrigger func(files []string)) (*DebouncedWatcher, error) {
	if onTrigger == nil {
		return nil, fmt.Errorf("onTrigger callback cannot be nil")
	}
	def := DefaultWatcherConfig()
	if cfg.DebounceDuration <= 0 {
		cfg.DebounceDuration = def.DebounceDuration
	}
	if cfg.ParallelFiles <= 0 {
		cfg.ParallelFiles = def.ParallelFiles
	}
	filter, err := newPathFilter(cfg.WatchPatterns, cfg.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	return &DebouncedWatcher{
		onTrigger: onTrigger,
		config:    cfg,
		filter:    filter,
		pending:   make(map[string]struct{}),
	}, nil
}

// UpdateConfig applies the set fields of cfg.
func (w *DebouncedWatcher) UpdateConfig(cfg WatcherConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.config
	if cfg.DebounceDuration > 0 {
		next.DebounceDuration = cfg.DebounceDuration
	}
	if cfg.ParallelFiles > 0 {
		next.ParallelFiles = cfg.ParallelFiles
	}
	if len(cfg.WatchPatterns) > 0 {
		next.WatchPatterns = cfg.WatchPatterns
	}
	if len(cfg.IgnorePatterns) > 0 {
		next.IgnorePatterns = cfg.IgnorePatterns
	}
	filter, err := newPathFilter(next.WatchPatterns, next.IgnorePatterns)
	if err != nil {
		return err
	}
	w.config, w.filter = next, filter
	return nil
}

func (w *DebouncedWatcher) Config() WatcherConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config
}

// ShouldWatch reports whether path matches a watch pattern and no ignore
// pattern.
func (w *DebouncedWatcher) ShouldWatch(path string) bool {
	w.mu.Lock()
	f := w.filter
	w.mu.Unlock()
	return f.match(path)
}

// FileChanged queues a file and restarts the quiet period.
func (w *DebouncedWatcher) FileChanged(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceDuration, w.flush)
}

func (w *DebouncedWatcher) flush() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	w.pending = make(map[string]struct{})
	parallel := w.config.ParallelFiles
	w.mu.Unlock()

	sort.Strings(files)
	if parallel <= 1 || len(files) <= 1 {
		w.onTrigger(files)
		return
	}

	var g errgroup.Group
	g.SetLimit(parallel)
	for _, f := range files {
		g.Go(func() error {
			w.onTrigger([]string{f})
			return nil
		})
	}
	_ = g.Wait()
}

// Stop drops pending changes. Later changes are ignored.
func (w *DebouncedWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = make(map[string]struct{})
}

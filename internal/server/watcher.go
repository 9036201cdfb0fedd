package server

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchedExtensions are the file types whose changes trigger a reload.
var WatchedExtensions = map[string]bool{
	".md":   true,
	".csv":  true,
	".json": true,
	".yaml": true,
	".yml":  true,
}

// Watcher watches an article directory and calls onReload once a burst of
// changes has settled.
type Watcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	onReload func(changed []string) error
	debounce func(func())
	log      zerolog.Logger
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	pending map[string]bool
}

// NewWatcher creates a watcher for rootDir and its subdirectories. Hidden
// directories are skipped.
func NewWatcher(rootDir string, settle time.Duration, onReload func([]string) error, log zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsWatcher,
		rootDir:  rootDir,
		onReload: onReload,
		debounce: debounce.New(settle),
		log:      log,
		done:     make(chan struct{}),
		pending:  make(map[string]bool),
	}

	if err := w.addDirectoryRecursive(rootDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addDirectoryRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.log.Debug().Str("dir", path).Msg("watching")
		return nil
	})
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Error().Err(err).Msg("watch error")
			case <-w.done:
				return
			}
		}
	}()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirectoryRecursive(event.Name); err != nil {
				w.log.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch new directory")
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	if !WatchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	rel, err := filepath.Rel(w.rootDir, event.Name)
	if err != nil {
		rel = event.Name
	}
	w.log.Debug().Str("file", rel).Str("op", event.Op.String()).Msg("file changed")

	w.mu.Lock()
	w.pending[rel] = true
	w.mu.Unlock()
	w.debounce(w.flush)
}

func (w *Watcher) flush() {
	select {
	case <-w.done:
		return
	default:
	}

	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for f := range w.pending {
		changed = append(changed, f)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()
	sort.Strings(changed)

	if len(changed) == 0 {
		return
	}
	if err := w.onReload(changed); err != nil {
		w.log.Error().Err(err).Strs("files", changed).Msg("reload failed")
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

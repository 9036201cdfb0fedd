// Package source loads the datasets visualizations draw from. Datasets are
// declared in scrollytell.yaml and read from files, HTTP endpoints or SQL
// databases.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/livetemplate/scrollytell/internal/cache"
	"github.com/livetemplate/scrollytell/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Row is one record. CSV fields are strings; JSON and SQL values keep their
// decoded types.
type Row = map[string]interface{}

// Dataset is one loadable table of rows.
type Dataset interface {
	Name() string
	Fetch(ctx context.Context) ([]Row, error)
	Close() error
}

// Registry resolves dataset names to rows. It satisfies the loader
// interface visualizations depend on.
type Registry struct {
	mu       sync.RWMutex
	datasets map[string]Dataset
	timeouts map[string]config.DatasetConfig
	cache    *cache.Memory[[]Row]
	flight   singleflight.Group
	log      zerolog.Logger
}

// NewRegistry creates every dataset declared in cfg. Relative file paths
// resolve against dir.
func NewRegistry(cfg *config.Config, dir string, log zerolog.Logger) (*Registry, error) {
	r := newRegistry(log)
	for _, name := range cfg.DatasetNames() {
		dc := cfg.Datasets[name]
		ds, err := create(name, dc, dir, r.log.With().Str("dataset", name).Logger())
		if err != nil {
			r.Close()
			return nil, err
		}
		r.Add(ds, dc)
	}
	return r, nil
}

func newRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		datasets: make(map[string]Dataset),
		timeouts: make(map[string]config.DatasetConfig),
		cache:    cache.New[[]Row](),
		log:      log.With().Str("component", "source").Logger(),
	}
}

// Add registers ds, wrapping it in a cache when dc enables one. A dataset
// with the same name is replaced.
func (r *Registry) Add(ds Dataset, dc config.DatasetConfig) {
	if dc.IsCacheEnabled() {
		ds = NewCached(ds, r.cache, dc.GetCacheTTL())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.datasets[ds.Name()]; ok {
		old.Close()
	}
	r.datasets[ds.Name()] = ds
	r.timeouts[ds.Name()] = dc
}

// Load fetches a dataset. Concurrent loads of the same name share one
// fetch.
func (r *Registry) Load(ctx context.Context, name string) ([]Row, error) {
	r.mu.RLock()
	ds, ok := r.datasets[name]
	dc := r.timeouts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Dataset: name}
	}

	v, err, shared := r.flight.Do(name, func() (interface{}, error) {
		timeout := dc.GetTimeout()
		fctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		rows, err := ds.Fetch(fctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, &TimeoutError{Dataset: name, Duration: timeout.String()}
			}
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		r.log.Error().Err(err).Str("dataset", name).Msg("dataset load failed")
		return nil, err
	}
	rows := v.([]Row)
	r.log.Debug().Str("dataset", name).Int("rows", len(rows)).Bool("shared", shared).Msg("dataset ready")
	return rows, nil
}

// Names returns the registered dataset names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.datasets))
	for n := range r.datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// InvalidateCache drops every cached dataset, e.g. after a data file
// changed on disk.
func (r *Registry) InvalidateCache() {
	r.cache.InvalidateAll()
}

// CacheStats reports cache lookups.
func (r *Registry) CacheStats() cache.Stats {
	return r.cache.Stats()
}

// Close releases every dataset and stops the cache sweeper.
func (r *Registry) Close() error {
	r.cache.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for name, ds := range r.datasets {
		if err := ds.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dataset %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func create(name string, dc config.DatasetConfig, dir string, log zerolog.Logger) (Dataset, error) {
	switch dc.Type {
	case "csv":
		return NewCSVFile(name, resolvePath(dir, dc.File), dc.Delimiter)
	case "json":
		return NewJSONFile(name, resolvePath(dir, dc.File), dc.ResultPath)
	case "rest":
		return NewRest(name, dc, log)
	case "sqlite":
		return NewSQLite(name, resolvePath(dir, dc.DB), dc.Table, dc.Query)
	case "pg":
		return NewPostgres(name, dc.DSN, dc.Query)
	default:
		return nil, &UnsupportedTypeError{Type: dc.Type}
	}
}

func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

package viz

import (
	"context"
	"fmt"
	"time"

	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/scroller"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SetupError reports a visualization whose setup failed.
type SetupError struct {
	ID  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("visualization %s: setup failed: %v", e.ID, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Registry holds visualizations in article order.
type Registry struct {
	vizzes  []Visualization
	byID    map[string]Visualization
	options map[string]map[string]string
	loader  DatasetLoader
	log     zerolog.Logger
}

// NewRegistry creates an empty registry whose visualizations load datasets
// through loader.
func NewRegistry(loader DatasetLoader, log zerolog.Logger) *Registry {
	return &Registry{
		byID:    make(map[string]Visualization),
		options: make(map[string]map[string]string),
		loader:  loader,
		log:     log,
	}
}

// Register appends v. IDs must be unique and non-empty.
func (r *Registry) Register(v Visualization) error {
	id := v.ID()
	if id == "" {
		return fmt.Errorf("visualization has empty id")
	}
	if _, dup := r.byID[id]; dup {
		return fmt.Errorf("visualization %q already registered", id)
	}
	r.vizzes = append(r.vizzes, v)
	r.byID[id] = v
	return nil
}

// SetOptions attaches per-visualization options passed through Context.
func (r *Registry) SetOptions(id string, opts map[string]string) {
	r.options[id] = opts
}

// Get returns a registered visualization.
func (r *Registry) Get(id string) (Visualization, bool) {
	v, ok := r.byID[id]
	return v, ok
}

// IDs returns visualization ids in order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.vizzes))
	for i, v := range r.vizzes {
		ids[i] = v.ID()
	}
	return ids
}

// Len returns the number of visualizations.
func (r *Registry) Len() int { return len(r.vizzes) }

// Select returns a registry holding only ids, in that order. It fails on
// an unknown or repeated id.
func (r *Registry) Select(ids []string) (*Registry, error) {
	out := NewRegistry(r.loader, r.log)
	for _, id := range ids {
		v, ok := r.byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown visualization %q", id)
		}
		if err := out.Register(v); err != nil {
			return nil, err
		}
		if opts, ok := r.options[id]; ok {
			out.options[id] = opts
		}
	}
	return out, nil
}

// Load runs every setup concurrently and waits for all of them. If any
// setup fails the others are cancelled and no Set is returned.
func (r *Registry) Load(ctx context.Context) (*Set, error) {
	start := time.Now()
	results := make([][]Step, len(r.vizzes))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range r.vizzes {
		g.Go(func() error {
			vc := &Context{
				ID:       v.ID(),
				Frame:    v.Frame(),
				Datasets: r.loader,
				Options:  r.options[v.ID()],
				Logger:   r.log.With().Str("viz", v.ID()).Logger(),
			}
			steps, err := v.Setup(gctx, vc)
			if err != nil {
				return &SetupError{ID: v.ID(), Err: err}
			}
			results[i] = steps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Error().Err(err).Msg("visualization setup failed, scrolling stays inactive")
		return nil, err
	}

	set := &Set{}
	for i, v := range r.vizzes {
		set.items = append(set.items, item{viz: v, steps: results[i]})
	}
	r.log.Info().
		Int("visualizations", len(r.vizzes)).
		Int("steps", set.StepCount()).
		Dur("took", time.Since(start)).
		Msg("visualizations ready")
	return set, nil
}

type item struct {
	viz   Visualization
	steps []Step
}

// Set is the result of a successful Load: every visualization with its
// steps, in order. It is immutable and shared by all sessions.
type Set struct {
	items []item
}

// StepInfo describes one step of the global sequence.
type StepInfo struct {
	Global int    `json:"step"`
	Viz    string `json:"viz"`
	Local  int    `json:"local"`
	Key    string `json:"key"`
}

// IDs returns visualization ids in order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.items))
	for i, it := range s.items {
		ids[i] = it.viz.ID()
	}
	return ids
}

// StepCount is the length of the global step sequence.
func (s *Set) StepCount() int {
	n := 0
	for _, it := range s.items {
		n += len(it.steps)
	}
	return n
}

// Steps lists the global sequence.
func (s *Set) Steps() []StepInfo {
	out := make([]StepInfo, 0, s.StepCount())
	for _, it := range s.items {
		for local := range it.steps {
			out = append(out, StepInfo{
				Global: len(out),
				Viz:    it.viz.ID(),
				Local:  local,
				Key:    Key(it.viz.ID(), local),
			})
		}
	}
	return out
}

// Scenes holds one scene per visualization for a single reader.
type Scenes map[string]*scene.Scene

// NewScenes creates fresh scenes for every visualization.
func (s *Set) NewScenes() Scenes {
	out := make(Scenes, len(s.items))
	for _, it := range s.items {
		out[it.viz.ID()] = scene.New(it.viz.ID(), it.viz.Frame())
	}
	return out
}

// RenderFunc is called after a step has updated its scene.
type RenderFunc func(info StepInfo, sc *scene.Scene)

// Bind turns the steps into scroller entries that draw into scenes. after,
// if non-nil, runs once the step has returned.
func (s *Set) Bind(scenes Scenes, after RenderFunc) [][]scroller.Entry {
	lists := make([][]scroller.Entry, 0, len(s.items))
	global := 0
	for _, it := range s.items {
		id := it.viz.ID()
		sc := scenes[id]
		entries := make([]scroller.Entry, len(it.steps))
		for local, step := range it.steps {
			info := StepInfo{Global: global, Viz: id, Local: local, Key: Key(id, local)}
			entries[local] = scroller.Entry{
				Key: info.Key,
				Callback: func() {
					step(sc)
					if after != nil {
						after(info, sc)
					}
				},
			}
			global++
		}
		lists = append(lists, entries)
	}
	return lists
}

// Package scroller maps a continuous scroll position onto a discrete step
// index and fires the callback registered for the step the reader lands on.
//
// A Scroller owns its state: nothing is global, so a server can run one
// scroller per reader session and tests can drive it with synthetic
// positions.
package scroller

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Unset is the active index before the first boundary has been reached.
const Unset = -1

// Callback renders one step. It must be safe to invoke repeatedly and must
// not call back into the Scroller that invokes it.
type Callback func()

// Entry registers one step: the key of its narrative element and the
// callback to run when the step becomes active.
type Entry struct {
	Key      string
	Callback Callback
}

// Locator reports the scroll offset of the narrative element for a step key.
// ok is false when the element does not exist.
type Locator interface {
	Offset(key string) (offset float64, ok bool)
}

// Offsets is a Locator backed by measured element offsets.
type Offsets map[string]float64

// Offset implements Locator.
func (o Offsets) Offset(key string) (float64, bool) {
	v, ok := o[key]
	return v, ok
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(key string) (float64, bool)

// Offset implements Locator.
func (f LocatorFunc) Offset(key string) (float64, bool) {
	return f(key)
}

// Mode selects how a multi-step jump is honored.
type Mode int

const (
	// ModeLanding fires only the callback of the step the position lands on.
	ModeLanding Mode = iota
	// ModeReplay fires the callback of every step entered along the way,
	// in crossing order, ending on the landing step.
	ModeReplay
)

func (m Mode) String() string {
	switch m {
	case ModeLanding:
		return "landing"
	case ModeReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// ParseMode parses "landing" or "replay". The empty string is ModeLanding.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "landing":
		return ModeLanding, nil
	case "replay":
		return ModeReplay, nil
	default:
		return ModeLanding, fmt.Errorf("unknown scroller mode %q (want landing or replay)", s)
	}
}

// Direction of a transition.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Boundary is a reachable step: its position in registration order, its key
// and the scroll offset at which it becomes active.
type Boundary struct {
	Step   int
	Key    string
	Offset float64
}

// Transition describes one change of the active index.
type Transition struct {
	From      int
	To        int
	Key       string // key of the step entered, empty when To is Unset
	Direction Direction
	Replayed  bool // an intermediate step entered in ModeReplay
}

// State is a snapshot of the scroller.
type State struct {
	Index       int
	Position    float64
	Initialized bool
}

// Options configure a Scroller.
type Options struct {
	Mode Mode
	// OnTransition is called after every change of the active index.
	OnTransition func(Transition)
	// OnError is called when a callback panics. The state has already
	// advanced; later transitions proceed normally.
	OnError func(Boundary, error)
	Logger  *zerolog.Logger
}

// Scroller evaluates scroll positions against sorted step boundaries.
type Scroller struct {
	mu         sync.Mutex
	opts       Options
	log        zerolog.Logger
	entries    []Entry
	boundaries []Boundary
	offsets    []float64
	callbacks  []Callback
	state      State
}

// New creates a scroller with no steps. Call Initialize to register them.
func New(opts Options) *Scroller {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Scroller{
		opts:  opts,
		log:   log,
		state: State{Index: Unset},
	}
}

// Flatten concatenates per-visualization entry lists, preserving order.
func Flatten(lists [][]Entry) []Entry {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Entry, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Initialize flattens lists, measures every step through loc and evaluates
// the initial position. Steps whose element loc cannot find are left out of
// the reachable sequence. An empty list leaves the scroller untouched.
func (s *Scroller) Initialize(lists [][]Entry, loc Locator, pos float64) {
	entries := Flatten(lists)
	if len(entries) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = entries
	s.measure(loc)
	s.state = State{Index: Unset, Position: pos, Initialized: true}
	s.evaluate(pos)
}

// Reset re-measures the registered steps, for example after a resize, and
// evaluates pos against the new layout. At most one callback fires, for the
// step pos lands on, and only if it differs from the active step. In the
// reported transition both From and To index the re-measured boundaries;
// From is Unset when the previously active element is gone.
func (s *Scroller) Reset(loc Locator, pos float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Position = pos
	if !s.state.Initialized {
		return
	}

	prevStep := Unset
	if s.state.Index != Unset {
		prevStep = s.boundaries[s.state.Index].Step
	}

	s.measure(loc)

	from := s.indexOfStep(prevStep)
	target := IndexAt(s.offsets, pos)
	nextStep := Unset
	if target != Unset {
		nextStep = s.boundaries[target].Step
	}

	s.state.Index = target
	if nextStep == prevStep {
		return
	}
	if target != Unset {
		s.invoke(target)
	}
	s.notify(Transition{From: from, To: target, Key: s.keyAt(target), Direction: direction(prevStep, nextStep)})
}

// indexOfStep returns the boundary index of a registered step, or Unset.
// Caller holds s.mu.
func (s *Scroller) indexOfStep(step int) int {
	if step == Unset {
		return Unset
	}
	for i, b := range s.boundaries {
		if b.Step == step {
			return i
		}
	}
	return Unset
}

// Update evaluates a new scroll position and fires the callback of the step
// it lands on if that differs from the active one. It reports whether the
// active index changed.
func (s *Scroller) Update(pos float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Position = pos
	if !s.state.Initialized {
		return false
	}
	return s.evaluate(pos)
}

// State returns a snapshot of the current state.
func (s *Scroller) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active returns the active boundary, or false when the state is Unset.
func (s *Scroller) Active() (Boundary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Index == Unset {
		return Boundary{}, false
	}
	return s.boundaries[s.state.Index], true
}

// Boundaries returns a copy of the reachable boundaries, sorted ascending.
func (s *Scroller) Boundaries() []Boundary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Boundary, len(s.boundaries))
	copy(out, s.boundaries)
	return out
}

// Len returns the number of registered steps, reachable or not.
func (s *Scroller) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IndexAt returns the index of the greatest offset not exceeding pos, or
// Unset if pos precedes offsets[0]. offsets must be sorted ascending.
func IndexAt(offsets []float64, pos float64) int {
	// First offset strictly greater than pos; the one before it is active.
	i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > pos })
	return i - 1
}

// measure rebuilds the boundary table from s.entries. Caller holds s.mu.
func (s *Scroller) measure(loc Locator) {
	bounds := make([]Boundary, 0, len(s.entries))
	for i, e := range s.entries {
		off, ok := loc.Offset(e.Key)
		if !ok {
			s.log.Debug().Str("key", e.Key).Int("step", i).Msg("step element missing, skipping")
			continue
		}
		bounds = append(bounds, Boundary{Step: i, Key: e.Key, Offset: off})
	}
	sort.SliceStable(bounds, func(a, b int) bool { return bounds[a].Offset < bounds[b].Offset })

	s.boundaries = bounds
	s.offsets = make([]float64, len(bounds))
	s.callbacks = make([]Callback, len(bounds))
	for i, b := range bounds {
		s.offsets[i] = b.Offset
		s.callbacks[i] = s.entries[b.Step].Callback
	}
}

// evaluate moves the state to the index for pos. Caller holds s.mu.
func (s *Scroller) evaluate(pos float64) bool {
	target := IndexAt(s.offsets, pos)
	from := s.state.Index
	if target == from {
		return false
	}

	if s.opts.Mode == ModeReplay {
		s.replay(from, target)
		return true
	}

	s.state.Index = target
	if target != Unset {
		s.invoke(target)
	}
	s.notify(Transition{From: from, To: target, Key: s.keyAt(target), Direction: direction(from, target)})
	return true
}

// replay enters every step between from and to in crossing order.
func (s *Scroller) replay(from, to int) {
	if to > from {
		for i := from + 1; i <= to; i++ {
			prev := s.state.Index
			s.state.Index = i
			s.invoke(i)
			s.notify(Transition{From: prev, To: i, Key: s.keyAt(i), Direction: Forward, Replayed: i != to})
		}
		return
	}
	// Scrolling back across boundary i leaves step i and enters step i-1.
	for i := from; i > to; i-- {
		prev := s.state.Index
		s.state.Index = i - 1
		if i-1 != Unset {
			s.invoke(i - 1)
		}
		s.notify(Transition{From: prev, To: i - 1, Key: s.keyAt(i - 1), Direction: Backward, Replayed: i-1 != to})
	}
}

func (s *Scroller) invoke(i int) {
	b := s.boundaries[i]
	cb := s.callbacks[i]
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("step %s: callback panicked: %v", b.Key, r)
			s.log.Error().Err(err).Int("step", b.Step).Msg("step callback failed")
			if s.opts.OnError != nil {
				s.opts.OnError(b, err)
			}
		}
	}()
	cb()
}

func (s *Scroller) notify(t Transition) {
	s.log.Debug().Int("from", t.From).Int("to", t.To).Str("key", t.Key).Stringer("dir", t.Direction).Msg("step transition")
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(t)
	}
}

func (s *Scroller) keyAt(i int) string {
	if i == Unset {
		return ""
	}
	return s.boundaries[i].Key
}

func direction(from, to int) Direction {
	if to < from {
		return Backward
	}
	return Forward
}

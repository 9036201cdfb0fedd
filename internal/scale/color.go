package scale

import (
	"fmt"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Ordinal maps category keys to values in registration order, cycling when
// there are more keys than values.
type Ordinal struct {
	values   []string
	assigned map[string]string
	order    []string
	fallback string
}

// NewOrdinal returns an ordinal scale. Explicit pairs can be given with Set.
func NewOrdinal(values ...string) *Ordinal {
	return &Ordinal{values: values, assigned: make(map[string]string)}
}

// Set pins key to value.
func (o *Ordinal) Set(key, value string) *Ordinal {
	if _, ok := o.assigned[key]; !ok {
		o.order = append(o.order, key)
	}
	o.assigned[key] = value
	return o
}

// Fallback is returned for unknown keys when no values are left to cycle.
func (o *Ordinal) Fallback(v string) *Ordinal {
	o.fallback = v
	return o
}

// Map returns the value for key, assigning the next value on first use.
func (o *Ordinal) Map(key string) string {
	if v, ok := o.assigned[key]; ok {
		return v
	}
	if len(o.values) == 0 {
		return o.fallback
	}
	v := o.values[len(o.order)%len(o.values)]
	o.Set(key, v)
	return v
}

// Keys returns the keys seen so far in assignment order.
func (o *Ordinal) Keys() []string { return append([]string(nil), o.order...) }

// Ramp is a piecewise colour scale: stops[i] is the colour at domain[i],
// colours in between are blended in RGB.
type Ramp struct {
	domain []float64
	stops  []colorful.Color
}

// NewRamp builds a ramp from hex colours. domain must be ascending and the
// same length as hexes.
func NewRamp(domain []float64, hexes ...string) (*Ramp, error) {
	if len(domain) != len(hexes) || len(domain) < 2 {
		return nil, fmt.Errorf("ramp needs matching domain and colours (got %d and %d)", len(domain), len(hexes))
	}
	if !sort.Float64sAreSorted(domain) {
		return nil, fmt.Errorf("ramp domain must be ascending: %v", domain)
	}
	r := &Ramp{domain: append([]float64(nil), domain...)}
	for _, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, fmt.Errorf("ramp colour %q: %w", h, err)
		}
		r.stops = append(r.stops, c)
	}
	return r, nil
}

// MustRamp is NewRamp for package-level palettes.
func MustRamp(domain []float64, hexes ...string) *Ramp {
	r, err := NewRamp(domain, hexes...)
	if err != nil {
		panic(err)
	}
	return r
}

// Map returns the hex colour for x, clamped to the ends of the ramp.
func (r *Ramp) Map(x float64) string {
	n := len(r.domain)
	if x <= r.domain[0] {
		return r.stops[0].Hex()
	}
	if x >= r.domain[n-1] {
		return r.stops[n-1].Hex()
	}
	i := sort.SearchFloat64s(r.domain, x)
	if r.domain[i] == x {
		return r.stops[i].Hex()
	}
	lo, hi := r.domain[i-1], r.domain[i]
	t := (x - lo) / (hi - lo)
	return r.stops[i-1].BlendRgb(r.stops[i], t).Clamped().Hex()
}

// Stops returns the domain and hex colours, for drawing gradient legends.
func (r *Ramp) Stops() ([]float64, []string) {
	hexes := make([]string, len(r.stops))
	for i, c := range r.stops {
		hexes[i] = c.Hex()
	}
	return append([]float64(nil), r.domain...), hexes
}

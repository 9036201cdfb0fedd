// Package scale maps data values onto positions, sizes and colours.
package scale

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/scale"
	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/go-moremath/vec"
)

// Linear maps a continuous domain onto a continuous range.
type Linear struct {
	s      scale.Linear
	r0, r1 float64
	clamp  bool
}

// NewLinear returns a linear scale from [d0, d1] to [r0, r1]. The range may
// be inverted, as for a y axis drawn top down.
func NewLinear(d0, d1, r0, r1 float64) *Linear {
	return &Linear{s: scale.Linear{Min: d0, Max: d1}, r0: r0, r1: r1}
}

// Clamp restricts output to the range.
func (l *Linear) Clamp(on bool) *Linear {
	l.clamp = on
	return l
}

// Domain returns the input interval.
func (l *Linear) Domain() (float64, float64) { return l.s.Min, l.s.Max }

// Range returns the output interval.
func (l *Linear) Range() (float64, float64) { return l.r0, l.r1 }

// Map scales x. A degenerate domain maps everything to the middle of the
// range.
func (l *Linear) Map(x float64) float64 {
	if l.s.Min == l.s.Max {
		return (l.r0 + l.r1) / 2
	}
	t := l.s.Map(x)
	if l.clamp {
		t = math.Max(0, math.Min(1, t))
	}
	return l.r0 + t*(l.r1-l.r0)
}

// Invert maps a range value back into the domain.
func (l *Linear) Invert(y float64) float64 {
	if l.r0 == l.r1 {
		return l.s.Min
	}
	t := (y - l.r0) / (l.r1 - l.r0)
	return l.s.Min + t*(l.s.Max-l.s.Min)
}

// Ticks returns at most n round tick values inside the domain, ascending.
func (l *Linear) Ticks(n int) []float64 {
	if n < 1 {
		return nil
	}
	s := l.s
	if s.Min > s.Max {
		s.Min, s.Max = s.Max, s.Min
	}
	if s.Min == s.Max {
		return []float64{s.Min}
	}
	major, _ := s.Ticks(scale.TickOptions{Max: n})
	out := make([]float64, 0, len(major))
	for _, v := range major {
		if v >= s.Min && v <= s.Max {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// Sqrt maps a domain onto a range by square root, for areas such as bubble
// radii.
type Sqrt struct {
	d0, d1 float64
	r0, r1 float64
}

// NewSqrt returns a square root scale.
func NewSqrt(d0, d1, r0, r1 float64) *Sqrt {
	return &Sqrt{d0: d0, d1: d1, r0: r0, r1: r1}
}

// Map scales x. Values below the domain map to r0.
func (s *Sqrt) Map(x float64) float64 {
	if s.d1 == s.d0 {
		return s.r1
	}
	t := (x - s.d0) / (s.d1 - s.d0)
	if t <= 0 {
		return s.r0
	}
	return s.r0 + math.Sqrt(t)*(s.r1-s.r0)
}

// Extent returns the minimum and maximum of xs, or 0, 0 when xs is empty.
func Extent(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return stats.Bounds(xs)
}

// Max returns the largest of xs, or 0 when xs is empty.
func Max(xs []float64) float64 {
	_, max := Extent(xs)
	return max
}

// Sum adds xs.
func Sum(xs []float64) float64 {
	return vec.Sum(xs)
}

// Mean averages xs, 0 when empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stats.Mean(xs)
}

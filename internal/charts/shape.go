package charts

import (
	"math"
	"strings"

	"github.com/livetemplate/scrollytell/internal/scene"
)

// Slice is one pie segment. Angles are in radians, clockwise from 12
// o'clock.
type Slice struct {
	Index      int
	Value      float64
	StartAngle float64
	EndAngle   float64
}

// MidAngle is the angle halfway through the slice.
func (s Slice) MidAngle() float64 { return s.StartAngle + (s.EndAngle-s.StartAngle)/2 }

// Pie lays values out around the circle in the order given.
func Pie(values []float64) []Slice {
	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	out := make([]Slice, len(values))
	a := 0.0
	for i, v := range values {
		span := 0.0
		if total > 0 && v > 0 {
			span = v / total * 2 * math.Pi
		}
		out[i] = Slice{Index: i, Value: v, StartAngle: a, EndAngle: a + span}
		a += span
	}
	return out
}

// Polar converts a radius and pie angle to x, y.
func Polar(r, angle float64) (float64, float64) {
	return r * math.Sin(angle), -r * math.Cos(angle)
}

// ArcPath returns the path of an annular sector.
func ArcPath(inner, outer float64, s Slice) string {
	large := "0"
	if s.EndAngle-s.StartAngle > math.Pi {
		large = "1"
	}
	// Full circles need two half arcs.
	if s.EndAngle-s.StartAngle >= 2*math.Pi-1e-9 {
		mid := s.StartAngle + math.Pi
		a := ArcPath(inner, outer, Slice{StartAngle: s.StartAngle, EndAngle: mid})
		b := ArcPath(inner, outer, Slice{StartAngle: mid, EndAngle: s.EndAngle})
		return a + b
	}
	x0, y0 := Polar(outer, s.StartAngle)
	x1, y1 := Polar(outer, s.EndAngle)
	var b strings.Builder
	b.WriteString("M" + pt(x0, y0))
	b.WriteString("A" + pt(outer, outer) + ",0," + large + ",1," + pt(x1, y1))
	if inner > 0 {
		x2, y2 := Polar(inner, s.EndAngle)
		x3, y3 := Polar(inner, s.StartAngle)
		b.WriteString("L" + pt(x2, y2))
		b.WriteString("A" + pt(inner, inner) + ",0," + large + ",0," + pt(x3, y3))
	} else {
		b.WriteString("L0,0")
	}
	b.WriteString("Z")
	return b.String()
}

// Centroid is the midpoint of the sector, where labels and leader lines
// attach.
func Centroid(inner, outer float64, s Slice) (float64, float64) {
	return Polar((inner+outer)/2, s.MidAngle())
}

// Points formats a polyline points attribute.
func Points(xy ...float64) string {
	parts := make([]string, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		parts = append(parts, pt(xy[i], xy[i+1]))
	}
	return strings.Join(parts, " ")
}

func pt(x, y float64) string {
	return scene.FormatFloat(x) + "," + scene.FormatFloat(y)
}

package charts

import "math"

// Point is a 2D position.
type Point struct{ X, Y float64 }

// PackOptions tune Pack.
type PackOptions struct {
	Padding    float64 // gap kept between circles
	Iterations int     // relaxation passes; default 300
	Strength   float64 // share of an overlap resolved per pass; default 0.5
}

// Pack places circles of the given radii around the origin without
// overlap. Circles start on a phyllotaxis spiral and overlapping pairs are
// pushed apart, larger circles moving less. The result depends only on the
// input, so every session draws the same layout.
func Pack(radii []float64, o PackOptions) []Point {
	if o.Iterations == 0 {
		o.Iterations = 300
	}
	if o.Strength == 0 {
		o.Strength = 0.5
	}
	n := len(radii)
	pts := make([]Point, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range pts {
		r := 10 * math.Sqrt(0.5+float64(i))
		a := float64(i) * golden
		pts[i] = Point{r * math.Cos(a), r * math.Sin(a)}
	}

	for it := 0; it < o.Iterations; it++ {
		moved := false
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := pts[j].X - pts[i].X
				dy := pts[j].Y - pts[i].Y
				d := math.Hypot(dx, dy)
				min := radii[i] + radii[j] + o.Padding
				if d >= min {
					continue
				}
				if d < 1e-9 {
					// coincident centres: separate along a fixed direction
					dx, dy, d = float64(j-i), 1, math.Hypot(float64(j-i), 1)
				}
				push := (min - d) / d * o.Strength
				wi, wj := weights(radii[i], radii[j])
				pts[i].X -= dx * push * wi
				pts[i].Y -= dy * push * wi
				pts[j].X += dx * push * wj
				pts[j].Y += dy * push * wj
				moved = true
			}
		}
		recenter(pts)
		if !moved {
			break
		}
	}
	return pts
}

// weights split a displacement so the smaller circle moves more.
func weights(ri, rj float64) (float64, float64) {
	ai, aj := ri*ri, rj*rj
	if ai+aj == 0 {
		return 0.5, 0.5
	}
	return aj / (ai + aj), ai / (ai + aj)
}

func recenter(pts []Point) {
	if len(pts) == 0 {
		return
	}
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pts))
	cy /= float64(len(pts))
	for i := range pts {
		pts[i].X -= cx
		pts[i].Y -= cy
	}
}

// Overlaps reports whether any two circles overlap by more than tol.
func Overlaps(pts []Point, radii []float64, tol float64) bool {
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			d := math.Hypot(pts[j].X-pts[i].X, pts[j].Y-pts[i].Y)
			if d < radii[i]+radii[j]-tol {
				return true
			}
		}
	}
	return false
}

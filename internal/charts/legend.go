package charts

import (
	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
)

// Swatch is one legend entry.
type Swatch struct {
	Color string
	Label string
}

// SwatchLegend lays entries out vertically.
type SwatchLegend struct {
	Width, Height float64 // swatch size; defaults 20x20
	Spacing       float64 // distance between rows; default 22
	FontSize      float64 // default 12
	Opacity       float64 // text opacity, 0 means opaque
	X, Y          float64 // legend origin
}

// Draw appends a legend group to parent.
func (l SwatchLegend) Draw(parent *scene.Element, items []Swatch) *scene.Element {
	w := orDefault(l.Width, 20)
	h := orDefault(l.Height, 20)
	spacing := orDefault(l.Spacing, 22)
	g := parent.Append("g").Class("legend").SetAttr("transform", scene.Translate(l.X, l.Y))
	for i, it := range items {
		cell := g.Append("g").Class("cell")
		cell.Append("rect").
			SetAttr("width", w).
			SetAttr("height", h).
			SetAttr("transform", scene.Translate(0, spacing*float64(i))).
			SetAttr("fill", it.Color)
		text := cell.Append("text").
			SetAttr("transform", scene.Translate(w+5, h/2+spacing*float64(i))).
			SetAttr("dominant-baseline", "middle").
			SetAttr("font-size", orDefault(l.FontSize, 12)).
			SetText(it.Label)
		if l.Opacity > 0 {
			text.SetAttr("opacity", l.Opacity)
		}
	}
	return g
}

// GradientLegend draws a horizontal colour bar for a ramp with a 0-100%
// axis below it. The gradient lives in the scene's defs under id.
func GradientLegend(sc *scene.Scene, parent *scene.Element, ramp *scale.Ramp, id, title string, x, y float64) *scene.Element {
	const width, height = 150.0, 15.0

	defs := sc.Defs()
	defs.RemoveAll("#" + id)
	grad := defs.Append("linearGradient").SetAttr("id", id)
	domain, hexes := ramp.Stops()
	lo, hi := domain[0], domain[len(domain)-1]
	for i, d := range domain {
		grad.Append("stop").
			SetAttr("offset", Percent(100*(d-lo)/(hi-lo))).
			SetAttr("stop-color", hexes[i])
	}

	g := parent.Append("g").Class("legend").SetAttr("transform", scene.Translate(x, y))
	g.Append("rect").
		SetAttr("width", width).
		SetAttr("height", height).
		SetAttr("fill", "url(#"+id+")")
	g.Append("text").
		SetAttr("transform", scene.Translate(0, -10)).
		SetAttr("font-size", 12).
		SetText(title)

	axis := Axis{
		Ticks:      []float64{lo, (lo + hi) / 2, hi},
		TickSize:   -height,
		Format:     func(v float64) string { return Integer(v) + "%" },
		HideDomain: true,
		FontSize:   12,
	}
	ax := axis.Bottom(g, scale.NewLinear(lo, hi, 0, width), height)
	anchors := []string{"start", "middle", "end"}
	for i, text := range ax.SelectAll(".tick text") {
		text.SetAttr("text-anchor", anchors[i%len(anchors)])
	}
	return g
}

package charts

import (
	"context"
	"math"

	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

type donutGroup struct {
	Sexe   string
	Values []float64 // in anxietyLevels order
}

var donutData = []donutGroup{
	{"Femmes", []float64{9.7, 61, 29.3}},
	{"Diverses identités de genre", []float64{1.1, 37.1, 61.8}},
	{"Hommes", []float64{16, 63.6, 20.5}},
}

// AnxieteDonut shows one group's symptom distribution per step.
type AnxieteDonut struct {
	base
}

// NewAnxieteDonut returns the anxiety donut chart.
func NewAnxieteDonut() *AnxieteDonut {
	return &AnxieteDonut{base{id: "anxiete-donut", frame: square()}}
}

// Setup implements viz.Visualization.
func (v *AnxieteDonut) Setup(_ context.Context, vc *viz.Context) ([]viz.Step, error) {
	w, h := vc.Frame.InnerWidth(), vc.Frame.InnerHeight()
	radius := math.Min(w, h) / 2.9
	steps := make([]viz.Step, len(donutData))
	for i, d := range donutData {
		steps[i] = func(sc *scene.Scene) { drawDonut(sc, d, w, h, radius) }
	}
	return steps, nil
}

func drawDonut(sc *scene.Scene, d donutGroup, w, h, radius float64) {
	root := reset(sc)
	g := root.Append("g").Class("donut").SetAttr("transform", scene.Translate(w/2, h/2))

	slices := Pie(d.Values)
	arcs := g.Append("g").Class("slices")
	for _, s := range slices {
		arcs.Append("path").
			Class(Slug(anxietyLevels[s.Index].Label)).
			SetAttr("d", ArcPath(radius*0.5, radius*0.8, s)).
			SetAttr("fill", anxietyLevels[s.Index].Color).
			SetAttr("stroke", "white").
			SetAttr("stroke-width", "2px")
	}

	lines := g.Append("g").Class("lines")
	labels := g.Append("g").Class("labels")
	for _, s := range slices {
		if s.Value <= 0 {
			continue
		}
		side := 1.0
		if s.MidAngle() > math.Pi {
			side = -1
		}
		ax, ay := Centroid(radius*0.5, radius*0.8, s)
		bx, by := Centroid(radius*0.9, radius*0.9, s)
		cx := radius * 0.95 * side
		lines.Append("polyline").
			SetAttr("points", Points(ax, ay, bx, by, cx, by)).
			SetAttr("stroke", "black").
			SetAttr("fill", "none").
			SetAttr("stroke-width", "1px")

		anchor := "start"
		if side < 0 {
			anchor = "end"
		}
		labels.Append("text").
			SetAttr("transform", scene.Translate(radius*0.99*side, by)).
			SetAttr("text-anchor", anchor).
			SetAttr("dominant-baseline", "middle").
			SetAttr("font-size", 12).
			SetText(anxietyLevels[s.Index].Label + " (" + Decimal(s.Value) + " %)")
	}

	center := g.Append("text").
		Class("center").
		SetAttr("text-anchor", "middle").
		SetAttr("font-size", 16).
		SetAttr("font-weight", "bold")
	Lines(center, Wrap(d.Sexe, 14), 0, 0)
}

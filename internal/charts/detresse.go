package charts

import (
	"context"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// Detresse places the mean psychological distress score of each group on
// the Kessler scale and its interpretation bands.
type Detresse struct {
	base
}

// NewDetresse returns the Kessler scale chart.
func NewDetresse() *Detresse {
	return &Detresse{base{id: "detresse", frame: square()}}
}

var distressScores = []struct {
	Group string
	Score float64
	Color string
}{
	{"Femmes", 11.4, Femmes},
	{"Diverses identités de genre", 11.2, Diverses},
	{"Hommes", 9.3, Hommes},
}

// kesslerZone spans Top-Height to Top on the scale.
type kesslerZone struct {
	Top, Height float64
	Stroke      string
	Label       string
}

var kesslerZones = []kesslerZone{
	{13, 5, Purple2, "Symptômes modérés"},
	{24, 11, Purple3, "Probabilité d'une maladie mentale grave"},
	{8, 8, Purple1, "Faibles symptômes"},
}

type detresseLayout struct {
	w, h float64
	x    *scale.Band
	y    *scale.Linear
}

// Setup implements viz.Visualization.
func (v *Detresse) Setup(_ context.Context, vc *viz.Context) ([]viz.Step, error) {
	groups := make([]string, len(distressScores))
	for i, d := range distressScores {
		groups[i] = d.Group
	}
	l := &detresseLayout{w: vc.Frame.InnerWidth(), h: vc.Frame.InnerHeight()}
	l.x = scale.NewBand(groups, 0, l.w).Padding(0.2)
	l.y = scale.NewLinear(0, 24, l.h, 0)
	return []viz.Step{
		func(sc *scene.Scene) { l.draw(sc, false, false) },
		func(sc *scene.Scene) { l.draw(sc, true, false) },
		func(sc *scene.Scene) { l.draw(sc, true, true) },
	}, nil
}

func (l *detresseLayout) draw(sc *scene.Scene, zones, bars bool) {
	root := reset(sc)
	g := root.Append("g").Class("kessler")

	if zones {
		opacity := 1.0
		if bars {
			opacity = 0.2
		}
		zg := g.Append("g").Class("zones").SetAttr("opacity", opacity)
		for _, z := range kesslerZones {
			top := l.y.Map(z.Top)
			zg.Append("rect").
				SetAttr("x", 0).
				SetAttr("y", top).
				SetAttr("width", l.w).
				SetAttr("height", l.y.Map(z.Top-z.Height)-top).
				SetAttr("fill", "none").
				SetAttr("stroke", z.Stroke).
				SetAttr("stroke-width", "2px").
				SetAttr("stroke-dasharray", "6 4")
			zg.Append("text").
				SetAttr("x", l.w-10).
				SetAttr("y", top+20).
				SetAttr("text-anchor", "end").
				SetAttr("font-size", 13).
				SetAttr("fill", z.Stroke).
				SetText(z.Label)
		}
	}

	if bars {
		width := l.w / 15
		bg := g.Append("g").Class("bars")
		for _, d := range distressScores {
			cx, _ := l.x.Center(d.Group)
			top := l.y.Map(d.Score)
			bg.Append("rect").
				Class(Slug(d.Group)).
				SetAttr("x", cx-width/2).
				SetAttr("y", top).
				SetAttr("width", width).
				SetAttr("height", l.h-top).
				SetAttr("fill", d.Color)
			bg.Append("text").
				SetAttr("x", cx).
				SetAttr("y", top-8).
				SetAttr("text-anchor", "middle").
				SetAttr("font-size", 12).
				SetAttr("font-weight", "bold").
				SetText(Decimal(d.Score))
		}
	}

	Axis{Count: 10, Format: Integer}.Left(g, l.y)
	Axis{}.BandBottom(g, l.x, l.h)
	AxisTitle(g, "y", "Valeur sur l'échelle de Kessler", -40, l.h/2, true, 15)
}

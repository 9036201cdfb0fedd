package charts

import (
	"context"
	"fmt"
	"math"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// Entreprises compares how often businesses adopted each adaptation
// measure overall and among women-owned businesses.
type Entreprises struct {
	base
}

// NewEntreprises returns the adaptation measures bar chart.
func NewEntreprises() *Entreprises {
	return &Entreprises{base{id: "entreprises", frame: scene.Frame{
		Width:  700,
		Height: 700,
		Margin: scene.Margin{Top: 100, Right: 100, Bottom: 100, Left: 365},
	}}}
}

type measure struct {
	Label string
	All   float64
	Women float64
}

const (
	colMeasure = "Caractéristiques de l'entreprise"
	colAll     = "tous les propriétaires"
	colWomen   = "femme"
)

// Setup implements viz.Visualization.
func (v *Entreprises) Setup(ctx context.Context, vc *viz.Context) ([]viz.Step, error) {
	rows, err := vc.Dataset(ctx, "adaptation")
	if err != nil {
		return nil, err
	}
	if err := RequireColumns(rows, colMeasure, colAll, colWomen); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", "adaptation", err)
	}
	data := make([]measure, len(rows))
	labels := make([]string, len(rows))
	upper := 0.0
	for i, r := range rows {
		all, err := Num(r, colAll)
		if err != nil {
			return nil, fmt.Errorf("dataset %q row %d: %w", "adaptation", i+1, err)
		}
		women, err := Num(r, colWomen)
		if err != nil {
			return nil, fmt.Errorf("dataset %q row %d: %w", "adaptation", i+1, err)
		}
		data[i] = measure{Label: Str(r, colMeasure), All: all, Women: women}
		labels[i] = data[i].Label
		upper = math.Max(upper, math.Max(all, women))
	}

	w, h := vc.Frame.InnerWidth(), vc.Frame.InnerHeight()
	x := scale.NewLinear(0, upper, 0, w)
	y := scale.NewBand(labels, 0, h).Padding(0.2)
	// characters per label line in the left margin
	wrap := int((vc.Frame.Margin.Left - 100) / 6)

	return []viz.Step{
		func(sc *scene.Scene) { v.draw(sc, data, x, y, w, h, wrap, false) },
		func(sc *scene.Scene) { v.draw(sc, data, x, y, w, h, wrap, true) },
	}, nil
}

func (v *Entreprises) draw(sc *scene.Scene, data []measure, x *scale.Linear, y *scale.Band, w, h float64, wrap int, women bool) {
	root := reset(sc)
	g := root.Append("g").Class("barchart2")

	Axis{
		Count:      5,
		TickSize:   -h,
		Stroke:     GridStroke,
		HideDomain: true,
		LabelShift: 5,
		Format:     func(v float64) string { return Integer(v) + "%" },
	}.Bottom(g, x, h)

	const womenWidth = 0.5
	bars := g.Append("g").Class("bars")
	for _, d := range data {
		top, _ := y.Map(d.Label)
		bars.Append("rect").
			Class("mean").
			SetAttr("x", x.Map(0)).
			SetAttr("y", top).
			SetAttr("width", x.Map(d.All)).
			SetAttr("height", y.Bandwidth()).
			SetAttr("fill", Pale)
	}
	for _, d := range data {
		top, _ := y.Map(d.Label)
		width := 0.0
		if women {
			width = x.Map(d.Women)
		}
		bars.Append("rect").
			Class("femmes").
			SetAttr("x", x.Map(0)).
			SetAttr("y", top+y.Bandwidth()*(1-womenWidth)/2).
			SetAttr("width", width).
			SetAttr("height", womenWidth*y.Bandwidth()).
			SetAttr("fill", Femmes)
	}

	Axis{FontSize: 11, LabelShift: 10}.BandLeft(g, y, wrap)

	label := AxisTitle(g, "y", "Mesures d'adaptation", -10, 10, false, 15)
	label.SetAttr("text-anchor", "end")
	AxisTitle(g, "x", "Pourcentage d'adoption", w/2, h+40, false, 15)

	if women {
		SwatchLegend{X: 5, Y: h + 50}.Draw(g, []Swatch{
			{Pale, "Toutes les entreprises"},
			{Femmes, "Entreprises détenues par des femmes"},
		})
	}
}

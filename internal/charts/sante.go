package charts

import (
	"context"
	"fmt"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// Sante compares COVID-19 cases and deaths by sex, first as totals then by
// age group.
type Sante struct {
	base
}

// NewSante returns the cases and deaths chart.
func NewSante() *Sante {
	return &Sante{base{id: "sante", frame: square()}}
}

type sexValue struct {
	Category string
	Sex      string
	Value    float64
}

// Setup implements viz.Visualization.
func (v *Sante) Setup(ctx context.Context, vc *viz.Context) ([]viz.Step, error) {
	cas, err := loadBySex(ctx, vc, "cas")
	if err != nil {
		return nil, err
	}
	deces, err := loadBySex(ctx, vc, "deces")
	if err != nil {
		return nil, err
	}

	var hommes, femmes float64
	for _, d := range cas {
		if d.Sex == "Hommes" {
			hommes += d.Value
		} else {
			femmes += d.Value
		}
	}
	totals := []sexValue{{Sex: "Hommes", Value: hommes}, {Sex: "Femmes", Value: femmes}}

	w, h := vc.Frame.InnerWidth(), vc.Frame.InnerHeight()
	return []viz.Step{
		func(sc *scene.Scene) { v.totals(sc, totals, w, h) },
		func(sc *scene.Scene) { v.grouped(sc, cas, "Nombre de cas", w, h) },
		func(sc *scene.Scene) { v.grouped(sc, deces, "Nombre de décès", w, h) },
	}, nil
}

// loadBySex reads a Category,Hommes,Femmes table into long form.
func loadBySex(ctx context.Context, vc *viz.Context, name string) ([]sexValue, error) {
	rows, err := vc.Dataset(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := RequireColumns(rows, "Category", "Hommes", "Femmes"); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}
	out := make([]sexValue, 0, 2*len(rows))
	for i, r := range rows {
		cat := Str(r, "Category")
		for _, sex := range []string{"Femmes", "Hommes"} {
			n, err := Num(r, sex)
			if err != nil {
				return nil, fmt.Errorf("dataset %q row %d: %w", name, i+1, err)
			}
			out = append(out, sexValue{Category: cat, Sex: sex, Value: n})
		}
	}
	return out, nil
}

func (v *Sante) totals(sc *scene.Scene, totals []sexValue, w, h float64) {
	root := reset(sc)
	chart := root.Append("g").Class("barChart")

	x := scale.NewBand([]string{"Hommes", "Femmes"}, 0, w)
	y := scale.NewLinear(0, maxValue(totals), h, 0)
	countAxis().Left(chart, y)
	Axis{TickSize: 6}.BandBottom(chart, x, h)

	bars := chart.Append("g").Class("firstBars")
	barWidth := w / 15
	for _, d := range totals {
		bx, _ := x.Map(d.Sex)
		bars.Append("rect").
			SetAttr("x", bx+w/4-barWidth/2).
			SetAttr("y", y.Map(d.Value)).
			SetAttr("width", barWidth).
			SetAttr("height", h-y.Map(d.Value)).
			SetAttr("fill", SexColor(d.Sex))
	}
	AxisTitle(root, "y", "Nombre de cas", -60, h/2, true, 15)
}

func (v *Sante) grouped(sc *scene.Scene, data []sexValue, label string, w, h float64) {
	root := reset(sc)
	chart := root.Append("g").Class("barChart")

	var cats []string
	for _, d := range data {
		cats = append(cats, d.Category)
	}
	x := scale.NewBand(cats, 0, w)
	sub := scale.NewBand([]string{"Hommes", "Femmes"}, 0, x.Bandwidth()-30).Padding(0.015)
	y := scale.NewLinear(0, maxValue(data), h, 0)

	countAxis().Left(chart, y)
	xa := Axis{TickSize: 6}.BandBottom(chart, x, h)
	for _, t := range xa.SelectAll(".tick text") {
		t.SetAttr("transform", "translate(0,7),rotate(-25)")
	}

	bars := chart.Append("g").Class("groupedBars")
	barWidth := w / 50
	for _, d := range data {
		cx, _ := x.Map(d.Category)
		sx, _ := sub.Map(d.Sex)
		bars.Append("rect").
			Class("bars", Slug(d.Sex)).
			SetAttr("x", sx+cx+x.Bandwidth()/2-barWidth).
			SetAttr("y", y.Map(d.Value)).
			SetAttr("width", barWidth).
			SetAttr("height", h-y.Map(d.Value)).
			SetAttr("fill", SexColor(d.Sex))
	}
	SwatchLegend{X: 10}.Draw(chart, sexLegend)
	AxisTitle(root, "y", label, -60, h/2, true, 15)
}

func countAxis() Axis {
	return Axis{
		Count:  5,
		Format: func(v float64) string { return Count(int64(v)) },
	}
}

func maxValue(data []sexValue) float64 {
	vals := make([]float64, len(data))
	for i, d := range data {
		vals[i] = d.Value
	}
	return scale.Max(vals)
}

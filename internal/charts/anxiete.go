package charts

import (
	"context"
	"fmt"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// anxietyLevels are the stacked symptom levels, bottom first.
var anxietyLevels = []Swatch{
	{Purple1, "Aucun symptôme"},
	{Purple2, "Symptômes légers"},
	{Purple3, "Symptômes modérés ou graves"},
}

// Anxiete stacks anxiety symptom levels by gender, revealing one level per
// step.
type Anxiete struct {
	base
}

// NewAnxiete returns the stacked anxiety bars.
func NewAnxiete() *Anxiete {
	return &Anxiete{base{id: "anxiete", frame: square()}}
}

type stackRow struct {
	Group  string
	Values []float64
}

// Setup implements viz.Visualization.
func (v *Anxiete) Setup(ctx context.Context, vc *viz.Context) ([]viz.Step, error) {
	rows, err := vc.Dataset(ctx, "anxiete")
	if err != nil {
		return nil, err
	}
	cols := []string{"Sexe"}
	for _, l := range anxietyLevels {
		cols = append(cols, l.Label)
	}
	if err := RequireColumns(rows, cols...); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", "anxiete", err)
	}

	data := make([]stackRow, len(rows))
	groups := make([]string, len(rows))
	for i, r := range rows {
		sr := stackRow{Group: Str(r, "Sexe")}
		for _, l := range anxietyLevels {
			n, err := Num(r, l.Label)
			if err != nil {
				return nil, fmt.Errorf("dataset %q row %d: %w", "anxiete", i+1, err)
			}
			sr.Values = append(sr.Values, n)
		}
		data[i] = sr
		groups[i] = sr.Group
	}

	w, h := vc.Frame.InnerWidth(), vc.Frame.InnerHeight()
	x := scale.NewBand(groups, 0, w).Padding(0.2)
	y := scale.NewLinear(0, 100, h, 80)

	steps := make([]viz.Step, len(anxietyLevels))
	for i := range steps {
		levels := i + 1
		steps[i] = func(sc *scene.Scene) { v.draw(sc, data, x, y, h, levels) }
	}
	return steps, nil
}

func (v *Anxiete) draw(sc *scene.Scene, data []stackRow, x *scale.Band, y *scale.Linear, h float64, levels int) {
	root := reset(sc)
	g := root.Append("g").Class("anxiete")
	Axis{}.BandBottom(g, x, h)
	Axis{Count: 10, Format: Integer}.Left(g, y)

	for li := 0; li < levels; li++ {
		layer := g.Append("g").Class("layer", Slug(anxietyLevels[li].Label)).
			SetAttr("fill", anxietyLevels[li].Color)
		for _, d := range data {
			base := 0.0
			for _, v := range d.Values[:li] {
				base += v
			}
			top := base + d.Values[li]
			bx, _ := x.Map(d.Group)
			layer.Append("rect").
				SetAttr("x", bx).
				SetAttr("width", x.Bandwidth()).
				SetAttr("y", y.Map(top)).
				SetAttr("height", y.Map(base)-y.Map(top))
		}
	}

	SwatchLegend{X: 20}.Draw(g, anxietyLevels)
	g.Append("text").
		Class("y", "axis-label").
		SetAttr("transform", scene.Translate(-50, 85)).
		SetAttr("font-size", 15).
		SetAttr("text-anchor", "middle").
		SetText("%")
}

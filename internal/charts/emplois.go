package charts

import (
	"context"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// Emplois compares unemployment rates of men and women between January
// 2020 and January 2021 in Québec, Canada and the United States.
type Emplois struct {
	base
}

// NewEmplois returns the unemployment slope chart.
func NewEmplois() *Emplois {
	return &Emplois{base{id: "emplois", frame: scene.Frame{
		Width:  425,
		Height: 450,
		Margin: scene.Margin{Top: 100, Right: 100, Bottom: 100, Left: 100},
	}}}
}

var emploisRegions = []struct {
	dataset string
	title   string
}{
	{"chomage_qc", "Taux de chômage au Québec"},
	{"chomage_ca", "Taux de chômage au Canada"},
	{"chomage_us", "Taux de chômage aux É.-U."},
}

// Setup implements viz.Visualization. Each region holds for two steps.
func (v *Emplois) Setup(ctx context.Context, vc *viz.Context) ([]viz.Step, error) {
	w, h := vc.Frame.InnerWidth(), vc.Frame.InnerHeight()
	y := scale.NewLinear(0, 10, h, 0)

	steps := make([]viz.Step, 0, 2*len(emploisRegions))
	for _, region := range emploisRegions {
		slopes, err := loadSlopes(ctx, vc, region.dataset)
		if err != nil {
			return nil, err
		}
		draw := func(sc *scene.Scene) { v.draw(sc, slopes, region.title, y, w, h) }
		steps = append(steps, draw, draw)
	}
	return steps, nil
}

func (v *Emplois) draw(sc *scene.Scene, slopes []slope, title string, y *scale.Linear, w, h float64) {
	root := reset(sc)
	g := root.Append("g").Class("unemployment")
	slopeGrid(g, y, 0, w, h, 9)
	AxisTitle(g, "y", "Taux de chômage (%)", -45, h/2, true, 11)
	drawSlopes(g, slopes, 0, w, y, slopeStyle{
		Radius:      4,
		StrokeWidth: "2.5px",
		Left:        "Jan 2020",
		Right:       "Jan 2021",
		PeriodFont:  11,
		PeriodDY:    30,
	})
	g.Append("text").
		Class("title").
		SetAttr("text-anchor", "middle").
		SetAttr("x", w/2).
		SetAttr("y", -25).
		SetAttr("font-size", 13).
		SetText(title)
	lineLegend(g, 10, 0, 15, 20, 10, "2.5px")
}

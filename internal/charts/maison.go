package charts

import (
	"context"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// Maison shows, as rows of three small slope charts, the share of men
// and women taking responsibility for household chores in 2017 and 2020.
type Maison struct {
	base
}

// NewMaison returns the household chores small multiples.
func NewMaison() *Maison {
	return &Maison{base{id: "maison", frame: scene.Frame{
		Width:  450,
		Height: 550,
		Margin: scene.Margin{Top: 225, Left: 50},
	}}}
}

type chore struct {
	dataset string
	title   string
}

var choreRows = [][]chore{
	{
		{"maison_vaisselle", "Vaisselle"},
		{"maison_lessive", "Lessive"},
		{"maison_menage", "Ménage"},
	},
	{
		{"maison_repas", "Préparation des repas"},
		{"maison_finances", "Finances du ménage"},
		{"maison_epicerie", "Épicerie"},
	},
}

const (
	choreWidth   = 100.0
	choreHeight  = 120.0
	choreSpacing = 40.0
)

type choreChart struct {
	title  string
	slopes []slope
}

// Setup implements viz.Visualization.
func (v *Maison) Setup(ctx context.Context, vc *viz.Context) ([]viz.Step, error) {
	y := scale.NewLinear(0, 80, choreHeight, 0)
	steps := make([]viz.Step, 0, len(choreRows))
	for _, row := range choreRows {
		charts := make([]choreChart, 0, len(row))
		for _, c := range row {
			slopes, err := loadSlopes(ctx, vc, c.dataset)
			if err != nil {
				return nil, err
			}
			charts = append(charts, choreChart{title: c.title, slopes: slopes})
		}
		steps = append(steps, func(sc *scene.Scene) { drawChores(sc, charts, y) })
	}
	return steps, nil
}

func drawChores(sc *scene.Scene, charts []choreChart, y *scale.Linear) {
	root := reset(sc)
	for i, c := range charts {
		dx := float64(i) * (choreWidth + choreSpacing)
		g := root.Append("g").SetAttr("id", "maison"+scene.FormatValue(i))
		slopeGrid(g, y, dx, choreWidth, choreHeight, 8)
		drawSlopes(g, c.slopes, dx, choreWidth, y, slopeStyle{
			Radius:      2,
			StrokeWidth: "1.5px",
			Left:        "2017",
			Right:       "2020",
			PeriodFont:  9,
			PeriodDY:    25,
		})
		g.Append("text").
			Class("title").
			SetAttr("text-anchor", "middle").
			SetAttr("x", dx+choreWidth/2).
			SetAttr("y", -15).
			SetAttr("font-size", 11).
			SetAttr("font-weight", "bold").
			SetText(c.title)
	}
	AxisTitle(root, "y", "Prise de responsabilité (%)", -30, choreHeight/2, true, 10)
	lineLegend(root, 10, -120, 15, 18, 10, "1.5px")
}

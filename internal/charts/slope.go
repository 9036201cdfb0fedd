package charts

import (
	"context"
	"fmt"
	"math"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// slope is one line of a slope chart: a series' value at the two periods.
type slope struct {
	Sex      string
	From, To float64
}

type slopeStyle struct {
	Radius      float64
	StrokeWidth string
	Left, Right string // period labels
	PeriodFont  float64
	PeriodDY    float64
}

// loadSlopes reads rows of {sex, value} and pairs the first two values of
// each sex, in file order.
func loadSlopes(ctx context.Context, vc *viz.Context, name string) ([]slope, error) {
	rows, err := vc.Dataset(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := RequireColumns(rows, "sex", "value"); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}
	var order []string
	values := make(map[string][]float64)
	for i, r := range rows {
		sex := Str(r, "sex")
		v, err := Num(r, "value")
		if err != nil {
			return nil, fmt.Errorf("dataset %q row %d: %w", name, i+1, err)
		}
		if _, seen := values[sex]; !seen {
			order = append(order, sex)
		}
		values[sex] = append(values[sex], v)
	}
	out := make([]slope, 0, len(order))
	for _, sex := range order {
		vs := values[sex]
		if len(vs) < 2 {
			return nil, fmt.Errorf("dataset %q: series %q needs two values, has %d", name, sex, len(vs))
		}
		out = append(out, slope{Sex: sex, From: vs[0], To: vs[1]})
	}
	return out, nil
}

// drawSlopes draws lines from x=dx to x=dx+width with end dots.
func drawSlopes(parent *scene.Element, slopes []slope, dx, width float64, y *scale.Linear, st slopeStyle) {
	for _, s := range slopes {
		color := SexColor(s.Sex)
		g := parent.Append("g").Class("slope-group", Slug(s.Sex))
		g.Append("line").
			Class("slope-line").
			SetAttr("x1", dx).
			SetAttr("y1", y.Map(s.From)).
			SetAttr("x2", dx+width).
			SetAttr("y2", y.Map(s.To)).
			SetAttr("stroke", color).
			SetAttr("opacity", 0.9).
			SetAttr("stroke-width", st.StrokeWidth)
		for _, end := range []struct{ x, v float64 }{{dx, s.From}, {dx + width, s.To}} {
			g.Append("circle").
				SetAttr("r", st.Radius).
				SetAttr("cx", end.x).
				SetAttr("cy", y.Map(end.v)).
				SetAttr("fill", color).
				SetAttr("opacity", 0.9)
		}
	}

	r0, r1 := y.Range()
	bottom := math.Max(r0, r1)
	periods := parent.Append("g").Class("periods")
	periods.Append("text").
		SetAttr("text-anchor", "start").
		SetAttr("x", dx).
		SetAttr("y", bottom+st.PeriodDY).
		SetAttr("font-weight", "bold").
		SetAttr("font-size", st.PeriodFont).
		SetText(st.Left)
	periods.Append("text").
		SetAttr("text-anchor", "end").
		SetAttr("x", dx+width).
		SetAttr("y", bottom+st.PeriodDY).
		SetAttr("font-weight", "bold").
		SetAttr("font-size", st.PeriodFont).
		SetText(st.Right)
}

// slopeGrid draws the y grid and the two period verticals of a slope chart.
func slopeGrid(parent *scene.Element, y *scale.Linear, dx, width, height, font float64) {
	g := parent.Append("g").SetAttr("transform", scene.Translate(dx, 0))
	Axis{
		Class:      "slope-y",
		Count:      5,
		TickSize:   -(width + 5),
		Stroke:     GridStroke,
		FontSize:   font,
		LabelShift: 10,
		Format:     Integer,
	}.Left(g, y)
	x := scale.NewLinear(0, 1, 0, width)
	Axis{
		Class:      "slope-x",
		Ticks:      []float64{0, 1},
		TickSize:   -(height + 5),
		Stroke:     GridStroke,
		HideLabels: true,
	}.Bottom(g, x, height)
}

// lineLegend is the two-entry legend of thin strokes used by slope charts.
func lineLegend(parent *scene.Element, x, y, width, spacing, font float64, stroke string) {
	SwatchLegend{
		Width:    width,
		Height:   parseStroke(stroke),
		Spacing:  spacing,
		FontSize: font,
		Opacity:  0.7,
		X:        x,
		Y:        y,
	}.Draw(parent, sexLegend)
}

func parseStroke(s string) float64 {
	var v float64
	if _, err := fmt.Sscanf(s, "%gpx", &v); err != nil {
		return 2
	}
	return v
}

package charts

import (
	"context"
	"fmt"

	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
	"github.com/livetemplate/scrollytell/internal/viz"
)

// Eclosions shows workplace outbreaks as bubbles, then occupations as a
// scatter of physical proximity against exposure to disease.
type Eclosions struct {
	base
}

// NewEclosions returns the outbreaks and occupations chart.
func NewEclosions() *Eclosions {
	return &Eclosions{base{id: "eclosions", frame: square()}}
}

type outbreak struct {
	Milieu     string
	Count      float64
	WomenShare float64
	HasShare   bool
}

type profession struct {
	Code      string
	Title     string
	Proximity float64
	Exposure  float64
	Workers   float64
	Women     float64
}

// highlightedCodes are the occupations labelled in the last step.
var highlightedCodes = map[string]bool{"3012": true, "3413": true, "4214": true, "4032": true}

// womenMajority is the share above which an occupation stays coloured when
// the female-dominated occupations are singled out.
const womenMajority = 75

type eclosionsLayout struct {
	w, h      float64
	outbreaks []outbreak
	total     float64
	radius    *scale.Sqrt
	packed    []Point
	jobs      []profession
	x, y      *scale.Linear
	r         *scale.Sqrt
	color     *scale.Ramp
}

// Setup implements viz.Visualization.
func (v *Eclosions) Setup(ctx context.Context, vc *viz.Context) ([]viz.Step, error) {
	outbreaks, err := loadOutbreaks(ctx, vc)
	if err != nil {
		return nil, err
	}
	jobs, err := loadProfessions(ctx, vc)
	if err != nil {
		return nil, err
	}

	l := &eclosionsLayout{
		w:         vc.Frame.InnerWidth(),
		h:         vc.Frame.InnerHeight(),
		outbreaks: outbreaks,
		jobs:      jobs,
		color:     womenShare(),
	}
	counts := make([]float64, len(outbreaks))
	for i, o := range outbreaks {
		counts[i] = o.Count
	}
	l.total = scale.Sum(counts)
	l.radius = scale.NewSqrt(0, l.total, 0, l.h/4)
	radii := make([]float64, len(outbreaks))
	for i, c := range counts {
		radii[i] = l.radius.Map(c)
	}
	l.packed = Pack(radii, PackOptions{Padding: 2})

	l.x = scale.NewLinear(0, 100, 0, l.w)
	l.y = scale.NewLinear(0, 100, l.h, 0)
	workers := make([]float64, len(jobs))
	for i, j := range jobs {
		workers[i] = j.Workers
	}
	lo, hi := scale.Extent(workers)
	l.r = scale.NewSqrt(lo, hi, 2, 20)

	return []viz.Step{
		l.mainBubble,
		func(sc *scene.Scene) { l.bubbles(sc, false) },
		func(sc *scene.Scene) { l.bubbles(sc, true) },
		func(sc *scene.Scene) { l.scatter(sc, false, false) },
		func(sc *scene.Scene) { l.scatter(sc, false, false) },
		func(sc *scene.Scene) { l.scatter(sc, false, false) },
		func(sc *scene.Scene) { l.scatter(sc, true, false) },
		func(sc *scene.Scene) { l.scatter(sc, true, true) },
	}, nil
}

func loadOutbreaks(ctx context.Context, vc *viz.Context) ([]outbreak, error) {
	rows, err := vc.Dataset(ctx, "eclosions")
	if err != nil {
		return nil, err
	}
	if err := RequireColumns(rows, "Milieu_eclosion", "Nombre_eclosions"); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", "eclosions", err)
	}
	out := make([]outbreak, len(rows))
	for i, r := range rows {
		n, err := Num(r, "Nombre_eclosions")
		if err != nil {
			return nil, fmt.Errorf("dataset %q row %d: %w", "eclosions", i+1, err)
		}
		o := outbreak{Milieu: Str(r, "Milieu_eclosion"), Count: n}
		if share, err := Num(r, "Proportion_femmes"); err == nil && share > 0 {
			o.WomenShare, o.HasShare = share, true
		}
		out[i] = o
	}
	return out, nil
}

func loadProfessions(ctx context.Context, vc *viz.Context) ([]profession, error) {
	rows, err := vc.Dataset(ctx, "professions")
	if err != nil {
		return nil, err
	}
	cols := []string{"Code", "Titre féminin", "Proximité physique", "Exposition aux maladies et infections", "Nombre total (Québec)", "Proportion de femmes"}
	if err := RequireColumns(rows, cols...); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", "professions", err)
	}
	out := make([]profession, len(rows))
	for i, r := range rows {
		p := profession{Code: Str(r, "Code"), Title: Str(r, "Titre féminin")}
		fields := []*float64{&p.Proximity, &p.Exposure, &p.Workers, &p.Women}
		for k, col := range cols[2:] {
			n, err := Num(r, col)
			if err != nil {
				return nil, fmt.Errorf("dataset %q row %d: %w", "professions", i+1, err)
			}
			*fields[k] = n
		}
		out[i] = p
	}
	return out, nil
}

func (l *eclosionsLayout) mainBubble(sc *scene.Scene) {
	root := reset(sc)
	g := root.Append("g").Class("total")
	cx, cy := l.w/2, l.h/2
	g.Append("circle").
		SetAttr("cx", cx).
		SetAttr("cy", cy).
		SetAttr("r", l.radius.Map(l.total)).
		SetAttr("fill", Neutral)
	for i, s := range []string{Count(int64(l.total)), "éclosions"} {
		g.Append("text").
			SetAttr("x", cx).
			SetAttr("y", cy-10+20*float64(i)).
			SetAttr("text-anchor", "middle").
			SetAttr("dominant-baseline", "middle").
			SetAttr("font-weight", "bold").
			SetAttr("fill", "white").
			SetText(s)
	}
}

func (l *eclosionsLayout) bubbles(sc *scene.Scene, colored bool) {
	root := reset(sc)
	g := root.Append("g").Class("milieux")
	for i, o := range l.outbreaks {
		p := l.packed[i]
		cx, cy := p.X+l.w/2, p.Y+l.h/2
		r := l.radius.Map(o.Count)
		fill := Neutral
		if colored && o.HasShare {
			fill = l.color.Map(o.WomenShare)
		}
		g.Append("circle").
			Class("bubble", Slug(o.Milieu)).
			SetAttr("cx", cx).
			SetAttr("cy", cy).
			SetAttr("r", r).
			SetAttr("fill", fill)

		ink := "white"
		if colored {
			ink = "black"
		}
		size := 16.0
		if o.Count < 100 {
			size = 10
		}
		g.Append("text").
			Class("label").
			SetAttr("x", cx).
			SetAttr("y", cy+10).
			SetAttr("text-anchor", "middle").
			SetAttr("dominant-baseline", "middle").
			SetAttr("font-weight", "bold").
			SetAttr("font-size", size).
			SetAttr("fill", ink).
			SetText(Integer(o.Count))

		// Small bubbles carry their name above them.
		ny, nink := cy-10, ink
		if r < 40 {
			ny, nink = cy-r-8, "black"
		}
		g.Append("text").
			Class("label_milieu").
			SetAttr("x", cx).
			SetAttr("y", ny).
			SetAttr("text-anchor", "middle").
			SetAttr("dominant-baseline", "middle").
			SetAttr("font-size", 13).
			SetAttr("fill", nink).
			SetText(o.Milieu)
	}
	if colored {
		GradientLegend(sc, root, l.color, "linear-gradient", "Proportion de femmes", 40, 30)
	}
}

func (l *eclosionsLayout) scatter(sc *scene.Scene, highlight, labels bool) {
	root := reset(sc)
	g := root.Append("g").Class("scatter")

	grid := Axis{Count: 5, TickSize: -(l.h + 5), Stroke: GridStroke, LabelShift: 10, Format: Integer}
	grid.Bottom(g, l.x, l.h)
	grid.TickSize = -(l.w + 5)
	grid.Left(g, l.y)
	AxisTitle(g, "y", "Exposition aux maladies et aux infections", -40, l.h/2, true, 15)
	AxisTitle(g, "x", "Proximité physique", l.w/2, l.h+40, false, 15)

	circles := g.Append("g").Class("circles")
	for _, j := range l.jobs {
		fill := l.color.Map(j.Women)
		if highlight && j.Women < womenMajority {
			fill = Faded
		}
		stroke := "white"
		if labels && highlightedCodes[j.Code] {
			stroke = "black"
		}
		circles.Append("circle").
			SetAttr("data-code", j.Code).
			SetAttr("cx", l.x.Map(j.Proximity)).
			SetAttr("cy", l.y.Map(j.Exposure)).
			SetAttr("r", l.r.Map(j.Workers)).
			SetAttr("fill", fill).
			SetAttr("stroke", stroke)
	}

	l.sizeLegend(g)
	GradientLegend(sc, root, l.color, "linear-gradient", "Proportion de femmes", 40, 30)

	if !labels {
		return
	}
	lg := g.Append("g").Class("bubbleLabel").SetAttr("transform", scene.Translate(-30, 0))
	for _, j := range l.jobs {
		if !highlightedCodes[j.Code] {
			continue
		}
		x := l.x.Map(j.Proximity)
		text := lg.Append("text").
			SetAttr("x", x).
			SetAttr("y", l.y.Map(j.Exposure)).
			SetAttr("font-size", 12).
			SetAttr("text-anchor", "end").
			SetAttr("font-weight", "bold").
			SetAttr("stroke", "white").
			SetAttr("stroke-width", "0.4px")
		Lines(text, Wrap(j.Title, 0), x, 0)
	}
}

func (l *eclosionsLayout) sizeLegend(parent *scene.Element) {
	g := parent.Append("g").Class("size-legend").SetAttr("transform", scene.Translate(40, 90))
	big, small := 150000.0, 50000.0
	rb, rs := l.r.Map(big), l.r.Map(small)
	for _, v := range []float64{big, small} {
		r := l.r.Map(v)
		cell := g.Append("g").Class("cell")
		cell.Append("circle").
			SetAttr("cx", rb).
			SetAttr("cy", r).
			SetAttr("r", r).
			SetAttr("fill", "white").
			SetAttr("stroke", "black")
	}
	labels := []struct {
		text string
		y    float64
	}{{Short(big), 2*rs + (rb - rs)}, {Short(small), rs}}
	for _, lb := range labels {
		g.Append("text").
			SetAttr("transform", scene.Translate(rb, lb.y)).
			SetAttr("dominant-baseline", "middle").
			SetAttr("text-anchor", "middle").
			SetAttr("font-size", 12).
			SetText(lb.text)
	}
	g.Append("text").
		SetAttr("transform", scene.Translate(0, -10)).
		SetAttr("font-size", 12).
		SetText("Nombre de travailleurs")
}

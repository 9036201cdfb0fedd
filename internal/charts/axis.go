package charts

import (
	"github.com/livetemplate/scrollytell/internal/scale"
	"github.com/livetemplate/scrollytell/internal/scene"
)

// Axis describes how an axis is drawn.
type Axis struct {
	Class string
	// Ticks overrides the scale's own tick values.
	Ticks []float64
	// Count is the tick budget when Ticks is empty. Default 5.
	Count  int
	Format func(float64) string
	// TickSize is the inner tick length. A negative size draws grid lines
	// across the plot.
	TickSize float64
	// Stroke colours tick lines and the domain path.
	Stroke   string
	FontSize float64
	// HideDomain omits the domain line.
	HideDomain bool
	// HideLabels keeps tick lines but no text.
	HideLabels bool
	// LabelShift nudges tick labels away from the axis.
	LabelShift float64
}

func (a Axis) tickValues(l *scale.Linear) []float64 {
	if len(a.Ticks) > 0 {
		return a.Ticks
	}
	n := a.Count
	if n == 0 {
		n = 5
	}
	return l.Ticks(n)
}

func (a Axis) format(v float64) string {
	if a.Format != nil {
		return a.Format(v)
	}
	return Decimal(v)
}

func (a Axis) tickSize() float64 {
	if a.TickSize == 0 {
		return 6
	}
	return a.TickSize
}

func (a Axis) group(parent *scene.Element, orient string) *scene.Element {
	g := parent.Append("g")
	if a.Class != "" {
		g.Class("axis", orient, a.Class)
	} else {
		g.Class("axis", orient)
	}
	g.SetAttr("fill", "none").SetAttr("font-size", orDefault(a.FontSize, 10))
	return g
}

func (a Axis) stroke() string {
	if a.Stroke == "" {
		return "currentColor"
	}
	return a.Stroke
}

// Left draws a vertical axis at x = 0 for y.
func (a Axis) Left(parent *scene.Element, y *scale.Linear) *scene.Element {
	g := a.group(parent, "y").SetAttr("text-anchor", "end")
	r0, r1 := y.Range()
	if !a.HideDomain {
		g.Append("path").Class("domain").
			SetAttr("stroke", a.stroke()).
			SetAttr("d", "M0,"+scene.FormatFloat(r0)+"V"+scene.FormatFloat(r1))
	}
	size := a.tickSize()
	for _, v := range a.tickValues(y) {
		t := g.Append("g").Class("tick").SetAttr("transform", scene.Translate(0, y.Map(v)))
		t.Append("line").SetAttr("stroke", a.stroke()).SetAttr("x2", -size)
		if !a.HideLabels {
			t.Append("text").
				SetAttr("fill", "currentColor").
				SetAttr("x", -a.labelOffset()).
				SetAttr("dy", "0.32em").
				SetText(a.format(v))
		}
	}
	return g
}

// Bottom draws a horizontal axis at y = offset for x.
func (a Axis) Bottom(parent *scene.Element, x *scale.Linear, offset float64) *scene.Element {
	g := a.group(parent, "x").
		SetAttr("text-anchor", "middle").
		SetAttr("transform", scene.Translate(0, offset))
	r0, r1 := x.Range()
	if !a.HideDomain {
		g.Append("path").Class("domain").
			SetAttr("stroke", a.stroke()).
			SetAttr("d", "M"+scene.FormatFloat(r0)+",0H"+scene.FormatFloat(r1))
	}
	size := a.tickSize()
	for _, v := range a.tickValues(x) {
		t := g.Append("g").Class("tick").SetAttr("transform", scene.Translate(x.Map(v), 0))
		t.Append("line").SetAttr("stroke", a.stroke()).SetAttr("y2", size)
		if !a.HideLabels {
			t.Append("text").
				SetAttr("fill", "currentColor").
				SetAttr("y", a.labelOffset()).
				SetAttr("dy", "0.71em").
				SetText(a.format(v))
		}
	}
	return g
}

// BandBottom draws a categorical axis under band centres.
func (a Axis) BandBottom(parent *scene.Element, x *scale.Band, offset float64) *scene.Element {
	g := a.group(parent, "x").
		SetAttr("text-anchor", "middle").
		SetAttr("transform", scene.Translate(0, offset))
	keys := x.Keys()
	if !a.HideDomain && len(keys) > 0 {
		first, _ := x.Map(keys[0])
		last, _ := x.Map(keys[len(keys)-1])
		lo, hi := first, last+x.Bandwidth()
		if hi < lo {
			lo, hi = last, first+x.Bandwidth()
		}
		g.Append("path").Class("domain").
			SetAttr("stroke", a.stroke()).
			SetAttr("d", "M"+scene.FormatFloat(lo)+",0H"+scene.FormatFloat(hi))
	}
	size := a.tickSize()
	for _, k := range keys {
		cx, _ := x.Center(k)
		t := g.Append("g").Class("tick").SetAttr("transform", scene.Translate(cx, 0))
		t.Append("line").SetAttr("stroke", a.stroke()).SetAttr("y2", size)
		if !a.HideLabels {
			t.Append("text").
				SetAttr("fill", "currentColor").
				SetAttr("y", a.labelOffset()).
				SetAttr("dy", "0.71em").
				SetText(k)
		}
	}
	return g
}

// BandLeft draws a categorical axis beside band centres. Labels longer
// than wrap characters are split over several lines.
func (a Axis) BandLeft(parent *scene.Element, y *scale.Band, wrap int) *scene.Element {
	g := a.group(parent, "y").SetAttr("text-anchor", "end")
	size := a.tickSize()
	for _, k := range y.Keys() {
		cy, _ := y.Center(k)
		t := g.Append("g").Class("tick").SetAttr("transform", scene.Translate(0, cy))
		t.Append("line").SetAttr("stroke", a.stroke()).SetAttr("x2", -size)
		if a.HideLabels {
			continue
		}
		text := t.Append("text").
			SetAttr("fill", "currentColor").
			SetAttr("x", -a.labelOffset())
		lines := Wrap(k, wrap)
		// centre the block of lines on the tick
		first := 0.32 - float64(len(lines)-1)*lineHeight/2
		Lines(text, lines, -a.labelOffset(), first)
	}
	return g
}

// AxisTitle adds a bold axis title at (x, y), rotated when vertical.
func AxisTitle(parent *scene.Element, class, label string, x, y float64, vertical bool, size float64) *scene.Element {
	transform := scene.Translate(x, y)
	if vertical {
		transform += ",rotate(-90)"
	}
	return parent.Append("text").
		Class(class, "axis-label").
		SetAttr("transform", transform).
		SetAttr("font-size", size).
		SetAttr("text-anchor", "middle").
		SetAttr("font-weight", "bold").
		SetText(label)
}

// labelOffset is the distance from the axis line to tick labels. Grid
// ticks point inward, so only outward ticks push labels away.
func (a Axis) labelOffset() float64 {
	size := a.tickSize()
	if size < 0 {
		size = 0
	}
	return size + 3 + a.LabelShift
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

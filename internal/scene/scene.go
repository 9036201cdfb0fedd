package scene

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

// Margin around the plotting area, in viewBox units.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Frame is the outer size of a visualization and its margins.
type Frame struct {
	Width  float64
	Height float64
	Margin Margin
}

// InnerWidth is the width of the plotting area.
func (f Frame) InnerWidth() float64 { return f.Width - f.Margin.Left - f.Margin.Right }

// InnerHeight is the height of the plotting area.
func (f Frame) InnerHeight() float64 { return f.Height - f.Margin.Top - f.Margin.Bottom }

// Scene is one visualization's SVG document.
type Scene struct {
	id    string
	frame Frame
	svg   *Element
	root  *Element
}

// New builds an empty scene: an <svg> sized by viewBox holding a <g>
// translated by the frame margins.
func New(id string, f Frame) *Scene {
	s := &Scene{id: id, frame: f}
	s.svg = NewElement("svg").
		SetAttr("xmlns", "http://www.w3.org/2000/svg").
		SetAttr("id", "svg-"+id).
		SetAttr("viewBox", fmt.Sprintf("0 0 %s %s", FormatFloat(f.Width), FormatFloat(f.Height))).
		SetAttr("preserveAspectRatio", "xMidYMid meet")
	s.root = s.svg.Append("g").
		Class("root").
		SetAttr("transform", Translate(f.Margin.Left, f.Margin.Top))
	return s
}

// ID returns the visualization id the scene belongs to.
func (s *Scene) ID() string { return s.id }

// Frame returns the scene dimensions.
func (s *Scene) Frame() Frame { return s.frame }

// Width is the inner plotting width.
func (s *Scene) Width() float64 { return s.frame.InnerWidth() }

// Height is the inner plotting height.
func (s *Scene) Height() float64 { return s.frame.InnerHeight() }

// SVG returns the outer <svg> element, used for defs such as gradients.
func (s *Scene) SVG() *Element { return s.svg }

// Root returns the margin-translated group steps draw into.
func (s *Scene) Root() *Element { return s.root }

// Defs returns the <defs> element, creating it on first use.
func (s *Scene) Defs() *Element {
	if d := s.svg.Select("defs"); d != nil {
		return d
	}
	d := NewElement("defs")
	// defs go first so references resolve in document order
	d.parent = s.svg
	s.svg.children = append([]*Element{d}, s.svg.children...)
	return d
}

// Render serializes the scene.
func (s *Scene) Render() string {
	var b strings.Builder
	write(&b, s.svg)
	return b.String()
}

// RenderMinified serializes and minifies the scene.
func (s *Scene) RenderMinified() (string, error) {
	return Minify(s.Render())
}

var (
	minifierOnce sync.Once
	minifier     *minify.M
)

// Minify minifies SVG text.
func Minify(doc string) (string, error) {
	minifierOnce.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("image/svg+xml", svg.Minify)
	})
	out, err := minifier.String("image/svg+xml", doc)
	if err != nil {
		return "", fmt.Errorf("minify svg: %w", err)
	}
	return out, nil
}

// Translate formats a translate transform.
func Translate(x, y float64) string {
	return "translate(" + FormatFloat(x) + "," + FormatFloat(y) + ")"
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func write(b *strings.Builder, e *Element) {
	b.WriteByte('<')
	b.WriteString(e.Tag)
	for _, a := range e.attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		attrEscaper.WriteString(b, a.Value)
		b.WriteByte('"')
	}
	if e.text == "" && len(e.children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	textEscaper.WriteString(b, e.text)
	for _, c := range e.children {
		write(b, c)
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}

// Package scene is a small retained SVG scene graph. Visualizations mutate a
// Scene in their step callbacks and the server renders it to SVG text.
package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Attr is one attribute. Attributes keep insertion order so rendering is
// deterministic.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the scene graph.
type Element struct {
	Tag      string
	attrs    []Attr
	text     string
	children []*Element
	parent   *Element
}

// NewElement creates a detached element.
func NewElement(tag string) *Element {
	return &Element{Tag: tag}
}

// Append creates a child element with the given tag and returns it.
func (e *Element) Append(tag string) *Element {
	c := NewElement(tag)
	e.AppendChild(c)
	return c
}

// AppendChild attaches c as the last child of e, detaching it from its
// previous parent first.
func (e *Element) AppendChild(c *Element) *Element {
	if c.parent != nil {
		c.Remove()
	}
	c.parent = e
	e.children = append(e.children, c)
	return c
}

// Parent returns the parent element, nil for a root or detached element.
func (e *Element) Parent() *Element { return e.parent }

// Children returns the direct children. The slice must not be modified.
func (e *Element) Children() []*Element { return e.children }

// Attr returns the value of the named attribute, or "".
func (e *Element) Attr(name string) string {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the attribute is set.
func (e *Element) HasAttr(name string) bool {
	for _, a := range e.attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Attrs returns a copy of the attributes in insertion order.
func (e *Element) Attrs() []Attr {
	out := make([]Attr, len(e.attrs))
	copy(out, e.attrs)
	return out
}

// SetAttr sets an attribute. Floats are rounded to two decimals; other
// values are formatted with fmt. Setting an existing attribute keeps its
// position.
func (e *Element) SetAttr(name string, value interface{}) *Element {
	v := FormatValue(value)
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = v
			return e
		}
	}
	e.attrs = append(e.attrs, Attr{Name: name, Value: v})
	return e
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(name string) *Element {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs = append(e.attrs[:i], e.attrs[i+1:]...)
			break
		}
	}
	return e
}

// Class sets the class attribute.
func (e *Element) Class(names ...string) *Element {
	return e.SetAttr("class", strings.Join(names, " "))
}

// HasClass reports whether name is one of the element's classes.
func (e *Element) HasClass(name string) bool {
	for _, c := range strings.Fields(e.Attr("class")) {
		if c == name {
			return true
		}
	}
	return false
}

// ID returns the id attribute.
func (e *Element) ID() string { return e.Attr("id") }

// SetText replaces the text content. Text is rendered before children.
func (e *Element) SetText(s string) *Element {
	e.text = s
	return e
}

// Text returns the element's own text.
func (e *Element) Text() string { return e.text }

// Remove detaches e from its parent.
func (e *Element) Remove() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

// Clear removes all children.
func (e *Element) Clear() *Element {
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
	return e
}

// Select returns the first descendant matching sel, or nil.
func (e *Element) Select(sel string) *Element {
	matches := e.selectAll(parseSelector(sel), true)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// SelectAll returns every descendant matching sel in document order.
func (e *Element) SelectAll(sel string) []*Element {
	return e.selectAll(parseSelector(sel), false)
}

// RemoveAll removes every descendant matching sel and returns how many were
// removed.
func (e *Element) RemoveAll(sel string) int {
	matches := e.SelectAll(sel)
	for _, m := range matches {
		m.Remove()
	}
	return len(matches)
}

// Ensure returns the first direct child with the given tag and class,
// creating it if needed. Steps use it to own a group without duplicating it
// on re-entry.
func (e *Element) Ensure(tag, class string) *Element {
	for _, c := range e.children {
		if c.Tag == tag && c.HasClass(class) {
			return c
		}
	}
	return e.Append(tag).Class(class)
}

// Walk visits e and its descendants depth first. Returning false from fn
// skips the element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.children {
		c.Walk(fn)
	}
}

func (e *Element) selectAll(sel selector, first bool) []*Element {
	if len(sel) == 0 {
		return nil
	}
	var out []*Element
	var visit func(n *Element) bool
	visit = func(n *Element) bool {
		for _, c := range n.children {
			if sel.matches(c, e) {
				out = append(out, c)
				if first {
					return false
				}
			}
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(e)
	return out
}

// FormatValue renders an attribute value.
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return FormatFloat(x)
	case float32:
		return FormatFloat(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// FormatFloat rounds to two decimals and drops trailing zeros.
func FormatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	r := math.Round(f*100) / 100
	if r == 0 {
		r = 0 // normalizes -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Package scrollytell serves data-journalism articles whose charts redraw in
// step with the narrative as the reader scrolls.
//
// An article is markdown. A ```viz block marks where a visualization sits;
// each ```step block that follows is one narrative step driving it:
//
//	```viz id="sante"
//	```
//
//	```step viz="sante"
//	Les femmes représentent la majorité des cas.
//	```
package scrollytell

import "github.com/livetemplate/scrollytell/internal/viz"

// DefaultLang is used when the frontmatter sets no lang.
const DefaultLang = "fr"

// Article is a parsed article.
type Article struct {
	Title      string
	Lang       string
	SourceFile string
	// Order lists visualization ids in scroll order.
	Order  []string
	Vizzes []*VizBlock
	Steps  []*StepBlock
	// HTML is the rendered body with viz containers and step sections.
	HTML string
}

// VizBlock is a declared visualization container.
type VizBlock struct {
	ID    string
	Line  int
	Steps int // step blocks that name this visualization
	Attrs map[string]string
}

// StepBlock is one narrative step.
type StepBlock struct {
	Viz   string
	Index int // position among the steps of Viz
	Line  int
	HTML  string
}

// Key is the step's address, the value of its data-step attribute.
func (s *StepBlock) Key() string {
	return viz.Key(s.Viz, s.Index)
}

// Viz returns the declared visualization with id, or nil.
func (a *Article) Viz(id string) *VizBlock {
	for _, v := range a.Vizzes {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// StepKeys returns the keys of every step block in document order.
func (a *Article) StepKeys() []string {
	keys := make([]string, len(a.Steps))
	for i, s := range a.Steps {
		keys[i] = s.Key()
	}
	return keys
}

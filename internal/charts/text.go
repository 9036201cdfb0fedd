package charts

import (
	"strings"
	"unicode/utf8"

	"github.com/livetemplate/scrollytell/internal/scene"
)

// lineHeight between wrapped lines, in em.
const lineHeight = 1.1

// Wrap breaks s into lines of at most width characters, splitting on
// spaces. A literal "\n" (backslash n, as stored in the datasets) forces a
// break. Words longer than width get a line of their own.
func Wrap(s string, width int) []string {
	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(s, `\n`, "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if width <= 0 {
			out = append(out, strings.Join(words, " "))
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}

// Lines fills text with one tspan per line, the first at dy=first em.
func Lines(text *scene.Element, lines []string, x, first float64) {
	text.Clear().SetText("")
	for i, l := range lines {
		dy := first
		if i > 0 {
			dy = lineHeight
		}
		text.Append("tspan").
			SetAttr("x", x).
			SetAttr("dy", scene.FormatFloat(dy)+"em").
			SetText(l)
	}
}

// Label appends a text element.
func Label(parent *scene.Element, s string, x, y, size float64) *scene.Element {
	return parent.Append("text").
		SetAttr("x", x).
		SetAttr("y", y).
		SetAttr("font-size", size).
		SetText(s)
}

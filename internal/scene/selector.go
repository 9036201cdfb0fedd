package scene

import "strings"

// compound is one space-separated part of a selector: an optional tag, an
// optional id and any number of classes, e.g. "rect.bar.highlight".
type compound struct {
	tag     string
	id      string
	classes []string
}

// selector is a descendant chain of compounds.
type selector []compound

func parseSelector(s string) selector {
	var sel selector
	for _, part := range strings.Fields(s) {
		sel = append(sel, parseCompound(part))
	}
	return sel
}

func parseCompound(s string) compound {
	var c compound
	// Split on '.' and '#' while remembering which marker preceded each token.
	marker := byte(0)
	start := 0
	flush := func(end int) {
		tok := s[start:end]
		if tok == "" {
			return
		}
		switch marker {
		case 0:
			c.tag = tok
		case '.':
			c.classes = append(c.classes, tok)
		case '#':
			c.id = tok
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == '#' {
			flush(i)
			marker = s[i]
			start = i + 1
		}
	}
	flush(len(s))
	return c
}

func (c compound) matches(e *Element) bool {
	if c.tag != "" && c.tag != "*" && c.tag != e.Tag {
		return false
	}
	if c.id != "" && e.ID() != c.id {
		return false
	}
	for _, cl := range c.classes {
		if !e.HasClass(cl) {
			return false
		}
	}
	return true
}

// matches reports whether e matches the chain, looking for ancestors no
// higher than scope (exclusive).
func (s selector) matches(e, scope *Element) bool {
	if !s[len(s)-1].matches(e) {
		return false
	}
	i := len(s) - 2
	for p := e.parent; i >= 0 && p != nil && p != scope; p = p.parent {
		if s[i].matches(p) {
			i--
		}
	}
	return i < 0
}

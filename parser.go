package scrollytell

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header of an article.
type Frontmatter struct {
	Title string `yaml:"title"`
	Lang  string `yaml:"lang"`
	// Visualizations orders the scroll sequence. Empty means declaration
	// order.
	Visualizations []string `yaml:"visualizations"`
}

// ParseFile reads and parses an article.
func ParseFile(path string) (*Article, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read article: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Parse(abs, content)
}

// Parse parses article markdown. file is used in error messages only.
func Parse(file string, content []byte) (*Article, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	fm, body, bodyLine, err := extractFrontmatter(file, content)
	if err != nil {
		return nil, err
	}

	p := &articleParser{
		file:     file,
		content:  content,
		body:     body,
		bodyLine: bodyLine,
		md:       newMarkdown(),
		article:  &Article{Title: fm.Title, Lang: fm.Lang, SourceFile: file},
		vizLine:  make(map[string]int),
	}
	if p.article.Lang == "" {
		p.article.Lang = DefaultLang
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	if err := p.order(fm); err != nil {
		return nil, err
	}
	if p.article.Title == "" {
		p.article.Title = p.firstHeading
	}
	return p.article, nil
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
}

// extractFrontmatter splits off the YAML header. bodyLine is the 1-indexed
// line the body starts on.
func extractFrontmatter(file string, content []byte) (*Frontmatter, []byte, int, error) {
	fm := &Frontmatter{}
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return fm, content, 1, nil
	}

	rest := content[4:]
	var header []byte
	switch i := bytes.Index(rest, []byte("\n---\n")); {
	case bytes.HasPrefix(rest, []byte("---\n")):
		rest = rest[4:]
	case i >= 0:
		header, rest = rest[:i], rest[i+5:]
	case bytes.HasSuffix(rest, []byte("\n---")):
		header, rest = rest[:len(rest)-4], nil
	default:
		return nil, nil, 0, NewParseError(file, 1, "unclosed frontmatter").
			WithHint("close the YAML header with a line containing only ---").
			withSource(content)
	}

	if err := yaml.Unmarshal(header, fm); err != nil {
		line := 1
		var n int
		if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &n); scanErr == nil {
			line = n + 1
		}
		return nil, nil, 0, NewParseError(file, line, fmt.Sprintf("invalid frontmatter: %v", err)).
			WithHint("frontmatter accepts title, lang and visualizations").
			withSource(content)
	}

	bodyLine := bytes.Count(content[:len(content)-len(rest)], []byte("\n")) + 1
	return fm, rest, bodyLine, nil
}

type articleParser struct {
	file     string
	content  []byte
	body     []byte
	bodyLine int
	md       goldmark.Markdown
	article  *Article

	vizLine      map[string]int
	firstHeading string

	out      bytes.Buffer
	openViz  string // viz whose scrolly group is open
	declared []string
}

func (p *articleParser) parse() error {
	doc := p.md.Parser().Parse(text.NewReader(p.body))

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 && p.firstHeading == "" {
			p.firstHeading = string(h.Text(p.body))
		}

		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			p.closeGroup()
			if err := p.md.Renderer().Render(&p.out, p.body, n); err != nil {
				return fmt.Errorf("render article: %w", err)
			}
			continue
		}

		kind, attrs := blockInfo(fenced, p.body)
		line := p.lineOf(fenced)
		switch kind {
		case "viz":
			if err := p.vizBlock(attrs, line); err != nil {
				return err
			}
		case "step":
			if err := p.stepBlock(fenced, attrs, line); err != nil {
				return err
			}
		default:
			p.closeGroup()
			if err := p.md.Renderer().Render(&p.out, p.body, n); err != nil {
				return fmt.Errorf("render article: %w", err)
			}
		}
	}
	p.closeGroup()
	p.article.HTML = p.out.String()
	return nil
}

func (p *articleParser) vizBlock(attrs map[string]string, line int) error {
	id := attrs["id"]
	if id == "" {
		return p.errorAt(line, "viz block without id").
			WithHint("declare the visualization as ```viz id=\"sante\"")
	}
	if prev, dup := p.vizLine[id]; dup {
		return p.errorAt(line, fmt.Sprintf("visualization %q declared twice", id)).
			WithRelated(fmt.Sprintf("first declared at line %d", prev))
	}
	p.closeGroup()
	p.vizLine[id] = line
	p.declared = append(p.declared, id)
	vb := &VizBlock{ID: id, Line: line, Attrs: attrs}
	p.article.Vizzes = append(p.article.Vizzes, vb)

	label := attrs["label"]
	if label == "" {
		label = id
	}
	fmt.Fprintf(&p.out, "<div class=\"scrolly\" id=\"scrolly-%s\">\n", html.EscapeString(id))
	fmt.Fprintf(&p.out, "<figure class=\"viz\" id=\"viz-%s\" data-viz=\"%s\" role=\"img\" aria-label=\"%s\"></figure>\n",
		html.EscapeString(id), html.EscapeString(id), html.EscapeString(label))
	p.out.WriteString("<div class=\"steps\">\n")
	p.openViz = id
	return nil
}

func (p *articleParser) stepBlock(fenced *ast.FencedCodeBlock, attrs map[string]string, line int) error {
	id := attrs["viz"]
	if id == "" {
		return p.errorAt(line, "step block without viz").
			WithHint("name the visualization the step drives: ```step viz=\"sante\"")
	}
	vb := p.article.Viz(id)
	if vb == nil {
		return p.errorAt(line, fmt.Sprintf("step for unknown visualization %q", id)).
			WithHint("declare the ```viz block before its steps")
	}
	if p.openViz != id {
		p.closeGroup()
	}

	var src bytes.Buffer
	lines := fenced.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		src.Write(seg.Value(p.body))
	}
	var rendered bytes.Buffer
	if err := p.md.Convert(src.Bytes(), &rendered); err != nil {
		return p.errorAt(line, fmt.Sprintf("render step: %v", err))
	}

	step := &StepBlock{Viz: id, Index: vb.Steps, Line: line, HTML: rendered.String()}
	vb.Steps++
	p.article.Steps = append(p.article.Steps, step)

	fmt.Fprintf(&p.out, "<section class=\"step\" data-step=\"%s\">\n%s</section>\n",
		html.EscapeString(step.Key()), rendered.String())
	return nil
}

func (p *articleParser) closeGroup() {
	if p.openViz == "" {
		return
	}
	p.out.WriteString("</div>\n</div>\n")
	p.openViz = ""
}

// order resolves the scroll sequence from the frontmatter.
func (p *articleParser) order(fm *Frontmatter) error {
	if len(fm.Visualizations) == 0 {
		p.article.Order = append([]string(nil), p.declared...)
		return nil
	}
	seen := make(map[string]bool, len(fm.Visualizations))
	for _, id := range fm.Visualizations {
		if seen[id] {
			return p.errorAt(1, fmt.Sprintf("visualization %q listed twice in frontmatter", id))
		}
		seen[id] = true
		p.article.Order = append(p.article.Order, id)
	}
	return nil
}

// lineOf returns the 1-indexed article line of a fenced block's opening
// fence.
func (p *articleParser) lineOf(fenced *ast.FencedCodeBlock) int {
	offset := 0
	if fenced.Info != nil {
		offset = fenced.Info.Segment.Start
	} else if fenced.Lines().Len() > 0 {
		offset = fenced.Lines().At(0).Start
	}
	return p.bodyLine + bytes.Count(p.body[:offset], []byte("\n"))
}

func (p *articleParser) errorAt(line int, msg string) *ParseError {
	return NewParseError(p.file, line, msg).withSource(p.content)
}

// blockInfo parses a fence info string such as `step viz="sante"`.
func blockInfo(fenced *ast.FencedCodeBlock, source []byte) (string, map[string]string) {
	if fenced.Info == nil {
		return "", nil
	}
	parts := splitInfo(string(fenced.Info.Text(source)))
	if len(parts) == 0 {
		return "", nil
	}
	attrs := make(map[string]string)
	for _, part := range parts[1:] {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		attrs[k] = strings.Trim(v, `"'`)
	}
	return parts[0], attrs
}

// splitInfo splits on spaces outside quotes, so label="Cas et décès" stays
// one field.
func splitInfo(info string) []string {
	var (
		fields []string
		cur    strings.Builder
		quote  rune
	)
	for _, r := range info {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t':
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

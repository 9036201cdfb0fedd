package scrollytell

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// ParseError is an article error with its location and a suggestion.
type ParseError struct {
	File    string // article path
	Line    int    // 1-indexed
	Column  int    // 1-indexed, optional
	Message string
	Hint    string
	Related string // e.g. "visualization 'sante' declared at line 12"

	source []byte // article text, used for context when File is unreadable
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Format()
}

// Format renders the error with the surrounding article lines.
func (e *ParseError) Format() string {
	var b strings.Builder

	file := e.File
	if file == "" {
		file = "article"
	}
	fmt.Fprintf(&b, "❌ Error in %s\n\n", file)
	fmt.Fprintf(&b, "Line %d: %s\n", e.Line, e.Message)
	b.WriteString(e.codeContext())

	if e.Hint != "" {
		fmt.Fprintf(&b, "\n💡 Tip: %s\n", e.Hint)
	}
	if e.Related != "" {
		fmt.Fprintf(&b, "\n🔗 %s\n", e.Related)
	}
	return b.String()
}

// codeContext shows two lines either side of the error line.
func (e *ParseError) codeContext() string {
	src := e.source
	if src == nil && e.File != "" {
		data, err := os.ReadFile(e.File)
		if err != nil {
			return ""
		}
		src = data
	}
	if src == nil {
		return ""
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(src))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	for i := max(1, e.Line-2); i <= min(len(lines), e.Line+2); i++ {
		prefix := fmt.Sprintf("  %2d | ", i)
		b.WriteString(prefix + lines[i-1] + "\n")
		if i == e.Line && e.Column > 0 {
			b.WriteString(strings.Repeat(" ", len(prefix)+e.Column-1) + "^\n")
		}
	}
	return b.String()
}

// NewParseError creates a ParseError.
func NewParseError(file string, line int, message string) *ParseError {
	return &ParseError{File: file, Line: line, Message: message}
}

// WithColumn adds column information to the error.
func (e *ParseError) WithColumn(col int) *ParseError {
	e.Column = col
	return e
}

// WithHint adds a helpful hint to the error.
func (e *ParseError) WithHint(hint string) *ParseError {
	e.Hint = hint
	return e
}

// WithRelated adds related information to the error.
func (e *ParseError) WithRelated(related string) *ParseError {
	e.Related = related
	return e
}

func (e *ParseError) withSource(src []byte) *ParseError {
	e.source = src
	return e
}

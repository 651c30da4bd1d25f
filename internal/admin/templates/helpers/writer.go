package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Writer accumulates markup and keeps the first write error, so components
// can emit a sequence of fragments and check once at the end.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup verbatim.
func (hw *Writer) Raw(markup string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, markup)
}

// Rawf writes formatted trusted markup. Arguments are not escaped.
func (hw *Writer) Rawf(format string, args ...any) {
	hw.Raw(fmt.Sprintf(format, args...))
}

// Text writes value HTML-escaped.
func (hw *Writer) Text(value string) {
	hw.Raw(templ.EscapeString(value))
}

// Attr writes ` name="value"` with the value escaped.
func (hw *Writer) Attr(name, value string) {
	hw.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// JSString writes value as a quoted JavaScript string literal safe for an
// inline script element.
func (hw *Writer) JSString(value string) {
	encoded, err := json.Marshal(value)
	if err != nil {
		hw.err = err
		return
	}
	hw.Raw(string(encoded))
}

// Component renders a nested component.
func (hw *Writer) Component(ctx context.Context, c templ.Component) {
	if hw.err != nil || c == nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

// Err returns the first error encountered.
func (hw *Writer) Err() error {
	return hw.err
}

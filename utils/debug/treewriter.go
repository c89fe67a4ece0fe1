// Package debug has helpers producing human readable dumps used in reports
// and diagnostic output.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indent = "  "

// TreeWriter accumulates indented text, one item per line.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes "label: value" with value quoted, so names with spaces
// and escapes stay readable.
func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Row writes cells left aligned in columns of the same width. Trailing
// spaces are not kept.
func (tw *TreeWriter) Row(depth int, width int, cells ...string) {
	var b strings.Builder
	b.WriteString(strings.Repeat(indent, depth))
	for i, c := range cells {
		b.WriteString(c)
		if i < len(cells)-1 && len(c) < width {
			b.WriteString(strings.Repeat(" ", width-len(c)))
		}
		if i < len(cells)-1 {
			b.WriteByte(' ')
		}
	}
	tw.w.WriteString(strings.TrimRight(b.String(), " "))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

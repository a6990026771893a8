package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Texter is implemented by values with a human-readable rendering. Each
// returned line is written on its own.
type Texter interface {
	TextLines() []string
}

// TextWriter writes items as plain lines, as soon as they arrive.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

func (w *TextWriter) Write(data any) error {
	for _, line := range textLines(data) {
		if _, err := w.w.WriteString(line); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

func (w *TextWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

func (w *TextWriter) Close() error {
	return w.Flush()
}

func textLines(data any) []string {
	switch v := data.(type) {
	case Texter:
		return v.TextLines()
	case string:
		return strings.Split(strings.TrimSuffix(v, "\n"), "\n")
	case []string:
		return v
	case fmt.Stringer:
		return []string{v.String()}
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

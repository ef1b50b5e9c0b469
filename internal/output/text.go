package output

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// TextWriter renders values for people. Reports become titled URL lists
// with a summary line; anything else is printed with %v.
type TextWriter struct {
	w *bufio.Writer
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w)}
}

// Write renders a single item.
func (w *TextWriter) Write(data any) error {
	switch v := data.(type) {
	case Report:
		return w.writeReport(v)
	case *Report:
		return w.writeReport(*v)
	case Entry:
		_, err := fmt.Fprintf(w.w, "%-8s %s\n", v.Status, v.URL)
		return err
	default:
		_, err := fmt.Fprintf(w.w, "%v\n", v)
		return err
	}
}

// WriteAll renders multiple items.
func (w *TextWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

func (w *TextWriter) writeReport(r Report) error {
	sections := []struct {
		title string
		items []string
	}{
		{"Allowed URLs", r.AllowedURLs},
		{"Ignored URLs", r.IgnoredURLs},
		{"Ignored domains", r.IgnoredDomains},
	}

	for _, s := range sections {
		fmt.Fprintf(w.w, "%s (%s)\n", s.title, humanize.Comma(int64(len(s.items))))
		for _, item := range s.items {
			fmt.Fprintf(w.w, "  %s\n", item)
		}
		fmt.Fprintln(w.w)
	}

	st := r.Stats
	summary := fmt.Sprintf("%s allowed, %s ignored",
		humanize.Comma(int64(st.Allowed)), humanize.Comma(int64(st.Ignored)))
	if st.Pages > 0 {
		summary += fmt.Sprintf(", %s pages visited", humanize.Comma(int64(st.Pages)))
	}
	if st.Failed > 0 {
		summary += fmt.Sprintf(" (%s failed)", humanize.Comma(int64(st.Failed)))
	}
	if st.Duration != "" {
		summary += " in " + st.Duration
	}
	if st.Browser != "" {
		summary += " using " + st.Browser
	}
	_, err := fmt.Fprintln(w.w, summary)
	return err
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}

// Package output renders check outcomes to a terminal, repainting the tree
// while checks are still running.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jwalton/go-supportscolor"
	"golang.org/x/term"

	"github.com/geomancy/geo/pkg/check"
)

const (
	green  = "\033[32m"
	red    = "\033[31m"
	yellow = "\033[33m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	reset  = "\033[0m"
)

// Renderer writes outcome trees to w.
type Renderer struct {
	w     io.Writer
	color bool
	live  bool // repaint in place while checks run
	width int  // 0 means unlimited

	painted int // lines written by the last live frame
}

// New returns a renderer for w. Colour is used when wanted and w is a
// terminal that supports it; live repainting only when w is a terminal.
func New(w io.Writer, wantColor bool) *Renderer {
	r := &Renderer{w: w}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r
	}

	r.live = true
	if width, _, err := term.GetSize(int(f.Fd())); err == nil {
		r.width = width
	}
	if wantColor {
		switch f {
		case os.Stdout:
			r.color = supportscolor.Stdout().SupportsColor
		case os.Stderr:
			r.color = supportscolor.Stderr().SupportsColor
		}
	}
	return r
}

// NewPlain returns a renderer that never colours or repaints.
func NewPlain(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// Watch paints out every interval until it is done or ctx is cancelled,
// then paints the final tree and a summary line. It returns whether out
// passed. Without a terminal only the final tree is written.
func (r *Renderer) Watch(ctx context.Context, out *check.Outcome, interval time.Duration) bool {
	if !r.live {
		passed := out.Wait(ctx, interval)
		r.Print(out)
		return passed
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !out.Done() {
		r.repaint(out)
		select {
		case <-ctx.Done():
			r.clear()
			r.Print(out)
			return out.Passed()
		case <-ticker.C:
		}
	}
	r.clear()
	r.Print(out)
	return out.Passed()
}

// Print writes the tree and the summary line.
func (r *Renderer) Print(out *check.Outcome) {
	for _, line := range r.Lines(out) {
		fmt.Fprintln(r.w, line)
	}
	fmt.Fprintln(r.w, r.Summary(out))
}

func (r *Renderer) repaint(out *check.Outcome) {
	r.clear()
	lines := r.Lines(out)
	for _, line := range lines {
		fmt.Fprintln(r.w, line)
	}
	r.painted = len(lines)
}

// clear moves the cursor to the start of the last frame and erases it.
func (r *Renderer) clear() {
	if r.painted > 0 {
		fmt.Fprintf(r.w, "\033[%dA\033[J", r.painted)
		r.painted = 0
	}
}

// Lines renders out as one line per outcome plus its details, children
// indented below their group.
func (r *Renderer) Lines(out *check.Outcome) []string {
	var lines []string
	r.lines(&lines, out, 0)
	return lines
}

func (r *Renderer) lines(dst *[]string, out *check.Outcome, depth int) {
	indent := strings.Repeat("  ", depth)
	if out == nil {
		*dst = append(*dst, indent+r.paint(yellow, "[WAIT]")+" "+r.fit("running", len(indent)+7))
		return
	}

	label, colour := statusLabel(out)
	text := out.Message
	if out.Status() == check.StatusFailed && out.Reason() != "" {
		text += " (" + out.Reason() + ")"
	}
	text = r.fit(text, len(indent)+len(label)+1)
	if out.IsGroup() {
		text = r.paint(bold, text)
	}
	*dst = append(*dst, indent+r.paint(colour, label)+" "+text)

	pad := indent + strings.Repeat(" ", len(label)+1)
	for _, d := range out.Details {
		*dst = append(*dst, pad+r.formatLabel(r.fit(d, len(pad))))
	}
	for _, child := range out.Children() {
		r.lines(dst, child, depth+1)
	}
}

func statusLabel(out *check.Outcome) (string, string) {
	switch {
	case out.IsGroup() && !out.Done():
		return "[WAIT]", yellow
	case out.Status() == check.StatusPassed:
		return "[OK]", green
	case out.Status() == check.StatusFailed:
		return "[FAIL]", red
	}
	return "[WAIT]", yellow
}

// Summary counts the settled leaf outcomes of out.
func (r *Renderer) Summary(out *check.Outcome) string {
	var passed, failed, pending int
	var walk func(*check.Outcome)
	walk = func(o *check.Outcome) {
		if o == nil {
			pending++
			return
		}
		if o.IsGroup() {
			for _, c := range o.Children() {
				walk(c)
			}
			return
		}
		switch o.Status() {
		case check.StatusPassed:
			passed++
		case check.StatusFailed:
			failed++
		default:
			pending++
		}
	}
	walk(out)

	s := fmt.Sprintf("%d passed, %d failed", passed, failed)
	if pending > 0 {
		s += fmt.Sprintf(", %d pending", pending)
	}
	if out.Done() && out.Passed() {
		return r.paint(green, "PASSED") + " " + s
	}
	if out.Done() {
		return r.paint(red, "FAILED") + " " + s
	}
	return r.paint(yellow, "RUNNING") + " " + s
}

// formatLabel dims the "label:" prefix of a detail line.
func (r *Renderer) formatLabel(s string) string {
	if !r.color {
		return s
	}
	if idx := strings.Index(s, ": "); idx > 0 {
		return dim + s[:idx+1] + reset + s[idx+1:]
	}
	return s
}

func (r *Renderer) paint(colour, s string) string {
	if !r.color {
		return s
	}
	return colour + s + reset
}

// fit truncates s so that a line starting at column used stays within the
// terminal width. A wrapped line would break the repaint.
func (r *Renderer) fit(s string, used int) string {
	if r.width == 0 {
		return s
	}
	room := r.width - used - 1
	if room < 1 {
		return ""
	}
	if utf8.RuneCountInString(s) <= room {
		return s
	}
	runes := []rune(s)
	if room == 1 {
		return "…"
	}
	return string(runes[:room-1]) + "…"
}

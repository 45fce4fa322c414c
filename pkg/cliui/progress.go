package cliui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Progress draws upload progress. On a terminal it redraws one bar in place;
// otherwise it prints a plain line whenever the processed count changes.
type Progress struct {
	mu          sync.Mutex
	w           io.Writer
	label       string
	interactive bool
	bar         progress.Model
	last        int
	drawn       bool
}

// NewProgress returns a progress display for label. interactive selects the
// redrawn bar; pass IsTerminal(w) for automatic detection.
func NewProgress(w io.Writer, label string, interactive bool) *Progress {
	return &Progress{
		w:           w,
		label:       label,
		interactive: interactive,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		last:        -1,
	}
}

// Update shows processed of total. fraction is clamped to [0, 1].
func (p *Progress) Update(fraction float64, processed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fraction = max(0, min(1, fraction))

	if p.interactive {
		fmt.Fprintf(p.w, "\r  %s %s %s",
			p.label,
			p.bar.ViewAs(fraction),
			StepStyle.Render(fmt.Sprintf("%d/%d", processed, total)),
		)
		p.drawn = true
		return
	}

	if processed == p.last {
		return
	}
	p.last = processed
	fmt.Fprintf(p.w, "  %s %d/%d (%.0f%%)\n", p.label, processed, total, fraction*100)
}

// Done finishes the display with a ✓ or ✗ line.
func (p *Progress) Done(err error, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interactive && p.drawn {
		fmt.Fprint(p.w, "\r\033[K")
	}
	line := fmt.Sprintf("  %s %s", Mark(err), p.label)
	if detail != "" {
		line += " " + StepStyle.Render(detail)
	}
	fmt.Fprintln(p.w, line)
}

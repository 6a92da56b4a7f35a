package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"media-converter/internal/orchestrator"
)

const (
	defaultWidth = 80
	minBarWidth  = 10
	maxBarWidth  = 50
)

// progressPrinter renders job progress. On a terminal it redraws a single
// bar line; otherwise it prints a line every ten percent.
type progressPrinter struct {
	w     io.Writer
	tty   bool
	width int

	mu          sync.Mutex
	lastPercent int
	state       orchestrator.State
	done        chan struct{}
}

func newProgressPrinter(w io.Writer, tty bool, width int) *progressPrinter {
	if width <= 0 {
		width = defaultWidth
	}
	return &progressPrinter{
		w:           w,
		tty:         tty,
		width:       width,
		lastPercent: -1,
		done:        make(chan struct{}),
	}
}

// Done is closed when the job reaches a terminal state.
func (p *progressPrinter) Done() <-chan struct{} {
	return p.done
}

// ExitCode maps the terminal state to a process exit code.
func (p *progressPrinter) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case orchestrator.StateSucceeded:
		return exitOK
	case orchestrator.StateCancelled:
		return exitCancelled
	default:
		return exitFailure
	}
}

func (p *progressPrinter) ProgressChanged(float64) {}

func (p *progressPrinter) PercentChanged(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty {
		fmt.Fprintf(p.w, "\r%s", p.bar(percent))
	} else if percent/10 > p.lastPercent/10 || p.lastPercent < 0 {
		fmt.Fprintf(p.w, "%3d%%\n", percent)
	}
	p.lastPercent = percent
}

func (p *progressPrinter) Completed(outputPath string) {
	p.finish(orchestrator.StateSucceeded, "Done: "+outputPath)
}

func (p *progressPrinter) Failed(failure orchestrator.Failure) {
	p.finish(orchestrator.StateFailed, "Failed: "+failure.Error())
}

func (p *progressPrinter) Cancelled() {
	p.finish(orchestrator.StateCancelled, "Cancelled")
}

func (p *progressPrinter) finish(state orchestrator.State, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Terminal() {
		return
	}
	if p.tty && p.lastPercent >= 0 {
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w, msg)
	p.state = state
	close(p.done)
}

// bar renders "[#####.....]  42%" sized to the terminal width.
func (p *progressPrinter) bar(percent int) string {
	percent = max(0, min(100, percent))
	size := max(minBarWidth, min(maxBarWidth, p.width-8))
	filled := size * percent / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(".", size-filled), percent)
}

var _ orchestrator.Observer = (*progressPrinter)(nil)

package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"media-converter/internal/orchestrator"
)

func TestProgressPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf, false, 0)
	for _, pct := range []int{0, 3, 9, 10, 15, 42, 99, 100} {
		p.PercentChanged(pct)
	}
	p.Completed("/out/clip.mp4")

	want := "  0%\n 10%\n 42%\n 99%\n100%\nDone: /out/clip.mp4\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after Completed")
	}
	if p.ExitCode() != exitOK {
		t.Errorf("ExitCode() = %d, want %d", p.ExitCode(), exitOK)
	}
}

func TestProgressPrinterTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf, true, 28)
	p.PercentChanged(50)
	p.Cancelled()

	want := "\r[##########..........]  50%\nCancelled\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if p.ExitCode() != exitCancelled {
		t.Errorf("ExitCode() = %d, want %d", p.ExitCode(), exitCancelled)
	}
}

func TestProgressPrinterFinishesOnce(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf, false, 0)
	p.Failed(orchestrator.Failure{Reason: orchestrator.ReasonEngineSubmissionFailed, Err: errors.New("exec: not found")})
	p.Completed("/out/x.mp4")

	if strings.Count(buf.String(), "\n") != 1 || !strings.HasPrefix(buf.String(), "Failed: engine_submission_failed") {
		t.Errorf("output = %q, want a single failure line", buf.String())
	}
	if p.ExitCode() != exitFailure {
		t.Errorf("ExitCode() = %d, want %d", p.ExitCode(), exitFailure)
	}
}

func TestProgressBarWidth(t *testing.T) {
	tests := []struct {
		width   int
		percent int
		want    string
	}{
		{width: 5, percent: 100, want: "[##########] 100%"},
		{width: 200, percent: 0, want: "[" + strings.Repeat(".", maxBarWidth) + "]   0%"},
		{width: 18, percent: 130, want: "[##########] 100%"},
		{width: 18, percent: -5, want: "[..........]   0%"},
	}
	for _, tt := range tests {
		p := newProgressPrinter(&bytes.Buffer{}, true, tt.width)
		if got := p.bar(tt.percent); got != tt.want {
			t.Errorf("bar(width %d, %d%%) = %q, want %q", tt.width, tt.percent, got, tt.want)
		}
	}
}

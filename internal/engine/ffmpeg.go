package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// baseArgs precede every job description. Progress goes to stdout as
// key=value batches; stderr carries level-tagged log lines.
var baseArgs = []string{
	"-hide_banner",
	"-nostdin",
	"-nostats",
	"-loglevel", "level+info",
	"-progress", "pipe:1",
}

type process struct {
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// FFmpeg runs job descriptions with the ffmpeg binary.
type FFmpeg struct {
	path      string
	processes map[string]*process
	processMu sync.Mutex
}

// NewFFmpeg creates an engine running the binary at path ("ffmpeg" when
// empty).
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{
		path:      path,
		processes: make(map[string]*process),
	}
}

// Path returns the configured binary.
func (f *FFmpeg) Path() string {
	return f.path
}

// CheckAvailable reports whether the binary can be found.
func (f *FFmpeg) CheckAvailable() error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("%s not found: %w", f.path, err)
	}
	return nil
}

// Execute implements Engine.
func (f *FFmpeg) Execute(args []string, cb Callbacks) (string, error) {
	id := uuid.New().String()

	ctx, cancel := context.WithCancel(context.Background())
	full := append(append([]string{}, baseArgs...), args...)
	cmd := exec.CommandContext(ctx, f.path, full...)
	isolate(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		metrics.EngineExecutionsTotal.WithLabelValues("start_error").Inc()
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		metrics.EngineExecutionsTotal.WithLabelValues("start_error").Inc()
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	logging.Debug("Starting engine execution %s: %s %s", id, f.path, strings.Join(full, " "))

	if err := cmd.Start(); err != nil {
		cancel()
		metrics.EngineExecutionsTotal.WithLabelValues("start_error").Inc()
		return "", fmt.Errorf("failed to start %s: %w", f.path, err)
	}

	proc := &process{cmd: cmd, cancel: cancel}
	f.processMu.Lock()
	f.processes[id] = proc
	f.processMu.Unlock()
	metrics.EngineProcessesRunning.Inc()

	// Callbacks are held back until the caller has the execution id.
	ready := make(chan struct{})
	defer close(ready)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		<-ready
		readProgress(stdout, func(stats Statistics) { cb.statistics(id, stats) })
	}()
	go func() {
		defer readers.Done()
		<-ready
		readLog(stderr, func(level logging.LogLevel, line string) {
			metrics.EngineLogLinesTotal.WithLabelValues(level.String()).Inc()
			cb.log(id, level, line)
		})
	}()

	go f.wait(id, proc, &readers, cb)

	return id, nil
}

// wait drains the output readers before reaping the process so that every
// statistics and log callback precedes OnComplete.
func (f *FFmpeg) wait(id string, proc *process, readers *sync.WaitGroup, cb Callbacks) {
	readers.Wait()

	err := proc.cmd.Wait()
	proc.cancel()

	f.processMu.Lock()
	delete(f.processes, id)
	f.processMu.Unlock()
	metrics.EngineProcessesRunning.Dec()

	status := exitStatus(err, proc.cancelled.Load())
	switch status {
	case StatusSuccess:
		metrics.EngineExecutionsTotal.WithLabelValues("success").Inc()
	case StatusCancelled:
		metrics.EngineExecutionsTotal.WithLabelValues("cancelled").Inc()
	default:
		metrics.EngineExecutionsTotal.WithLabelValues("failure").Inc()
	}
	logging.Debug("Engine execution %s finished with status %d", id, status)

	cb.complete(id, status)
}

// exitStatus maps a finished process to a completion status. Only an
// execution stopped through Cancel or Cleanup reports StatusCancelled; an
// exit code of 255 from any other cause is a failure.
func exitStatus(err error, cancelled bool) int {
	if cancelled {
		return StatusCancelled
	}
	if err == nil {
		return StatusSuccess
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 && code != StatusCancelled {
			return code
		}
	}
	return StatusFailure
}

// Cancel implements Engine.
func (f *FFmpeg) Cancel(id string) {
	f.processMu.Lock()
	proc, ok := f.processes[id]
	f.processMu.Unlock()
	if !ok {
		return
	}

	logging.Info("Cancelling engine execution %s", id)
	proc.cancelled.Store(true)
	proc.cancel()
}

// Running returns the number of tracked executions.
func (f *FFmpeg) Running() int {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	return len(f.processes)
}

// Cleanup stops all active executions.
func (f *FFmpeg) Cleanup() {
	f.processMu.Lock()
	defer f.processMu.Unlock()

	for id, proc := range f.processes {
		logging.Info("Killing engine execution: %s", id)
		proc.cancelled.Store(true)
		proc.cancel()
	}
}

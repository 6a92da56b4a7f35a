package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// ErrDurationUnknown is reported when a source's duration cannot be
// determined. It only degrades progress reporting.
var ErrDurationUnknown = errors.New("duration unknown")

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 15 * time.Second

// Duration is the outcome of a probe.
type Duration struct {
	Seconds float64
	Known   bool
}

// Unknown is the zero-knowledge probe result.
var Unknown = Duration{}

// Known returns a known duration.
func Known(seconds float64) Duration {
	return Duration{Seconds: seconds, Known: true}
}

// Inspector is the media-inspection capability: it returns the total
// duration of a source in seconds.
type Inspector interface {
	Duration(ctx context.Context, src mediatypes.SourceRef) (float64, error)
}

// FFprobe inspects sources with the ffprobe binary.
type FFprobe struct {
	Path string
}

// NewFFprobe returns an inspector running the binary at path ("ffprobe"
// when empty).
func NewFFprobe(path string) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{Path: path}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration implements Inspector.
func (f *FFprobe) Duration(ctx context.Context, src mediatypes.SourceRef) (float64, error) {
	cmd := exec.CommandContext(ctx, f.Path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		src.String(),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe error: %w - %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseDuration(stdout.Bytes())
}

func parseDuration(output []byte) (float64, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}

	raw := strings.TrimSpace(out.Format.Duration)
	if raw == "" || raw == "N/A" {
		return 0, ErrDurationUnknown
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrDurationUnknown, raw)
	}
	return seconds, nil
}

// Prober determines source durations asynchronously.
type Prober struct {
	inspector Inspector
	timeout   time.Duration
}

// NewProber creates a prober. A non-positive timeout uses DefaultTimeout.
func NewProber(inspector Inspector, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{inspector: inspector, timeout: timeout}
}

// Probe starts determining the duration of src and returns immediately.
// done is called exactly once from a background goroutine, with Unknown on
// any failure. Cancelling ctx yields Unknown.
func (p *Prober) Probe(ctx context.Context, src mediatypes.SourceRef, done func(Duration)) {
	var once sync.Once
	deliver := func(d Duration) {
		once.Do(func() { done(d) })
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Duration probe panicked for %s: %v", src, r)
				metrics.ProbeTotal.WithLabelValues("unknown").Inc()
				deliver(Unknown)
			}
		}()
		deliver(p.probe(ctx, src))
	}()
}

func (p *Prober) probe(ctx context.Context, src mediatypes.SourceRef) Duration {
	if p.inspector == nil {
		metrics.ProbeTotal.WithLabelValues("unknown").Inc()
		return Unknown
	}

	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	seconds, err := p.inspector.Duration(probeCtx, src)
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	if err == nil && (seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0)) {
		err = fmt.Errorf("%w: non-positive duration %v", ErrDurationUnknown, seconds)
	}
	if err != nil {
		logging.Debug("Duration probe for %s: %v", src, err)
		metrics.ProbeTotal.WithLabelValues("unknown").Inc()
		return Unknown
	}

	logging.Debug("Duration probe for %s: %.3fs", src, seconds)
	metrics.ProbeTotal.WithLabelValues("known").Inc()
	return Known(seconds)
}

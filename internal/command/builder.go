package command

import (
	"errors"
	"fmt"
	"strconv"

	"media-converter/internal/mediatypes"
)

// ErrInvalidOperationParameters is returned when an operation is missing a
// parameter its kind requires. The job is never submitted.
var ErrInvalidOperationParameters = errors.New("invalid operation parameters")

// Fixed encoder settings.
const (
	VideoCodec    = "libx264"
	AudioCodec    = "aac"
	MP3Codec      = "libmp3lame"
	VideoCRF      = 23
	HLSPreset     = "ultrafast"
	OverlayFilter = "overlay=(main_w-overlay_w)/2:(main_h-overlay_h)/2"
)

// Operation is a request to build one engine job.
type Operation struct {
	Kind      mediatypes.OperationKind
	Source    mediatypes.SourceRef
	Watermark mediatypes.SourceRef
	Quality   mediatypes.AudioQuality
}

// Description is an immutable engine job: the ordered argument list and the
// output path it targets.
type Description struct {
	kind       mediatypes.OperationKind
	args       []string
	inputs     []mediatypes.SourceRef
	outputPath string
}

// Kind returns the operation kind the description was built for.
func (d Description) Kind() mediatypes.OperationKind { return d.kind }

// OutputPath returns the file the job writes.
func (d Description) OutputPath() string { return d.outputPath }

// Args returns a copy of the engine arguments.
func (d Description) Args() []string {
	out := make([]string, len(d.args))
	copy(out, d.args)
	return out
}

// Inputs returns a copy of the job's input sources in argument order.
func (d Description) Inputs() []mediatypes.SourceRef {
	out := make([]mediatypes.SourceRef, len(d.inputs))
	copy(out, d.inputs)
	return out
}

// Builder maps operations to engine argument lists.
type Builder struct {
	// Threads is passed to -threads on overlays. 0 lets the encoder decide.
	Threads int
}

// NewBuilder creates a builder using the given overlay thread count.
func NewBuilder(threads int) *Builder {
	if threads < 0 {
		threads = 0
	}
	return &Builder{Threads: threads}
}

// Validate checks that op carries every parameter its kind requires.
func Validate(op Operation) error {
	if !op.Kind.Valid() {
		return fmt.Errorf("%w: unknown operation kind %q", ErrInvalidOperationParameters, op.Kind)
	}
	if op.Source == "" {
		return fmt.Errorf("%w: %s requires a source", ErrInvalidOperationParameters, op.Kind)
	}

	switch op.Kind {
	case mediatypes.AudioExtract:
		if !op.Quality.Valid() {
			return fmt.Errorf("%w: audio extract requires a quality of 64, 128, 256 or 320 kbps, got %d",
				ErrInvalidOperationParameters, int(op.Quality))
		}
	case mediatypes.WatermarkOverlay:
		if op.Watermark == "" {
			return fmt.Errorf("%w: watermark overlay requires a watermark source", ErrInvalidOperationParameters)
		}
	}
	return nil
}

// Build produces the job description for op writing to outputPath. It does
// no filesystem or network I/O.
func (b *Builder) Build(op Operation, outputPath string) (Description, error) {
	if err := Validate(op); err != nil {
		return Description{}, err
	}
	if outputPath == "" {
		return Description{}, fmt.Errorf("%w: empty output path", ErrInvalidOperationParameters)
	}

	// -n: fail instead of overwriting if something recreated the output
	// after stale-file cleanup.
	args := make([]string, 0, 24)
	args = append(args, "-n", "-i", op.Source.String())
	inputs := []mediatypes.SourceRef{op.Source}

	switch op.Kind {
	case mediatypes.AudioExtract:
		args = append(args,
			"-vn",
			"-acodec", MP3Codec,
			"-ab", op.Quality.Bitrate(),
		)

	case mediatypes.VideoTranscode:
		args = append(args,
			"-c:v", VideoCodec,
			"-crf", strconv.Itoa(VideoCRF),
			"-c:a", AudioCodec,
		)

	case mediatypes.WatermarkOverlay:
		args = append(args, "-i", op.Watermark.String())
		inputs = append(inputs, op.Watermark)
		args = append(args,
			"-filter_complex", OverlayFilter,
			"-c:v", VideoCodec,
			"-crf", strconv.Itoa(VideoCRF),
			"-c:a", AudioCodec,
			"-threads", strconv.Itoa(b.Threads),
		)

	case mediatypes.HLSToContainer:
		args = append(args,
			"-c:v", VideoCodec,
			"-preset", HLSPreset,
			"-c:a", AudioCodec,
		)
	}

	args = append(args, outputPath)

	return Description{
		kind:       op.Kind,
		args:       args,
		inputs:     inputs,
		outputPath: outputPath,
	}, nil
}

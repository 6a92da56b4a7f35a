package orchestrator

import (
	"context"

	"media-converter/internal/mediatypes"
)

// Observer receives a job's events in order from a single goroutine.
// After Completed, Failed or Cancelled no further events are delivered
// for that job. Observers may call back into the Orchestrator.
type Observer interface {
	ProgressChanged(fraction float64)
	PercentChanged(percent int)
	Completed(outputPath string)
	Failed(failure Failure)
	Cancelled()
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) ProgressChanged(float64) {}
func (NopObserver) PercentChanged(int)      {}
func (NopObserver) Completed(string)        {}
func (NopObserver) Failed(Failure)          {}
func (NopObserver) Cancelled()              {}

// Journal records job history. Calls are made in job order from the
// event goroutine; errors are logged and otherwise ignored.
type Journal interface {
	RecordSubmitted(ctx context.Context, job Job) error
	RecordFinished(ctx context.Context, job Job) error
}

// WatermarkPreparer turns a watermark source into the image handed to the
// engine. A failed preparation falls back to the original source.
type WatermarkPreparer interface {
	Prepare(ctx context.Context, src mediatypes.SourceRef) (mediatypes.SourceRef, error)
}

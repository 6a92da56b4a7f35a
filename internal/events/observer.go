package events

import (
	"sync"

	"media-converter/internal/orchestrator"
)

// JobObserver publishes one job's orchestrator events to a Bus.
//
// The job id is only known once Submit returns, so events that arrive
// before Bind are held and published, in order, after the submitted event.
type JobObserver struct {
	bus *Bus

	mu       sync.Mutex
	handle   orchestrator.Handle
	bound    bool
	pending  []Event
	fraction float64
}

// NewObserver creates an unbound observer for one submission.
func (b *Bus) NewObserver() *JobObserver {
	return &JobObserver{bus: b}
}

// Bind attaches the submitted job's handle and flushes held events.
func (o *JobObserver) Bind(h orchestrator.Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.bound {
		return
	}
	o.handle = h
	o.bound = true

	o.bus.Publish(Event{
		JobID:      h.ID,
		Type:       EventTypeSubmitted,
		Kind:       string(h.Kind),
		OutputPath: h.OutputPath,
	})
	for _, event := range o.pending {
		event.JobID = h.ID
		event.Kind = string(h.Kind)
		o.bus.Publish(event)
	}
	o.pending = nil
}

func (o *JobObserver) publish(event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.bound {
		o.pending = append(o.pending, event)
		return
	}
	event.JobID = o.handle.ID
	event.Kind = string(o.handle.Kind)
	o.bus.Publish(event)
}

// ProgressChanged implements orchestrator.Observer. The fraction is
// published together with the percentage that follows it.
func (o *JobObserver) ProgressChanged(fraction float64) {
	o.mu.Lock()
	o.fraction = fraction
	o.mu.Unlock()
}

// PercentChanged implements orchestrator.Observer.
func (o *JobObserver) PercentChanged(percent int) {
	o.mu.Lock()
	fraction := o.fraction
	o.mu.Unlock()
	o.publish(Event{Type: EventTypeProgress, Fraction: fraction, Percent: percent})
}

// Completed implements orchestrator.Observer.
func (o *JobObserver) Completed(outputPath string) {
	o.publish(Event{Type: EventTypeCompleted, Fraction: 1, Percent: 100, OutputPath: outputPath})
}

// Failed implements orchestrator.Observer.
func (o *JobObserver) Failed(failure orchestrator.Failure) {
	o.publish(Event{
		Type:       EventTypeFailed,
		Reason:     string(failure.Reason),
		StatusCode: failure.StatusCode,
		Message:    failure.Error(),
	})
}

// Cancelled implements orchestrator.Observer.
func (o *JobObserver) Cancelled() {
	o.publish(Event{Type: EventTypeCancelled})
}

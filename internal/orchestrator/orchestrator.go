package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-converter/internal/command"
	"media-converter/internal/engine"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/output"
	"media-converter/internal/probe"
)

const journalTimeout = 5 * time.Second

// Config wires an Orchestrator. Engine and Resolver are required.
type Config struct {
	Engine    engine.Engine
	Prober    *probe.Prober
	Resolver  *output.Resolver
	Builder   *command.Builder
	Journal   Journal
	Watermark WatermarkPreparer
}

type activeJob struct {
	snapshot     Job
	observer     Observer
	stages       []command.Description
	intermediate string
	execID       string
	duration     probe.Duration
	lastTime     time.Duration
	haveSample   bool
	maxFraction  float64
	cancelProbe  context.CancelFunc
}

// Orchestrator runs at most one job at a time and relays its normalized
// progress to the job's Observer.
type Orchestrator struct {
	engine    engine.Engine
	prober    *probe.Prober
	resolver  *output.Resolver
	builder   *command.Builder
	journal   Journal
	watermark WatermarkPreparer

	mu     sync.Mutex
	state  State
	job    *activeJob
	last   *Job
	closed bool

	events *dispatcher
}

// New creates an idle orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Engine == nil {
		return nil, errors.New("orchestrator: engine is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("orchestrator: resolver is required")
	}
	if cfg.Builder == nil {
		cfg.Builder = command.NewBuilder(0)
	}

	return &Orchestrator{
		engine:    cfg.Engine,
		prober:    cfg.Prober,
		resolver:  cfg.Resolver,
		builder:   cfg.Builder,
		journal:   cfg.Journal,
		watermark: cfg.Watermark,
		state:     StateIdle,
		events:    newDispatcher(),
	}, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns a snapshot of the in-flight job, or of the last finished
// job when none is in flight.
func (o *Orchestrator) Current() (Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job != nil {
		return o.job.snapshot, true
	}
	if o.last != nil {
		return *o.last, true
	}
	return Job{}, false
}

// Submit validates req, resolves its output and starts it on the engine.
// Parameter errors and ErrJobAlreadyInProgress are returned synchronously;
// engine errors are reported to obs as Failed. The slot is held in Probing
// while outputs are planned, so a concurrent Submit is rejected without
// waiting on the filesystem.
func (o *Orchestrator) Submit(ctx context.Context, req Request, obs Observer) (Handle, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if err := validate(req); err != nil {
		metrics.JobsRejectedTotal.WithLabelValues("invalid_parameters").Inc()
		return Handle{}, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Handle{}, ErrClosed
	}
	if o.state.Active() {
		o.mu.Unlock()
		metrics.JobsRejectedTotal.WithLabelValues("in_progress").Inc()
		return Handle{}, ErrJobAlreadyInProgress
	}
	previous := o.state
	o.state = StateProbing
	o.mu.Unlock()

	stages, intermediate, err := o.plan(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.state = previous
		metrics.JobsRejectedTotal.WithLabelValues("invalid_parameters").Inc()
		return Handle{}, err
	}
	if o.closed {
		o.state = previous
		return Handle{}, ErrClosed
	}

	job := &activeJob{
		snapshot: Job{
			ID:          uuid.New().String(),
			Kind:        req.Kind,
			Source:      req.Source.String(),
			Watermark:   req.Watermark.String(),
			Quality:     int(req.Quality),
			OutputPath:  stages[len(stages)-1].OutputPath(),
			State:       StateProbing,
			Stages:      len(stages),
			SubmittedAt: time.Now(),
		},
		observer:     obs,
		stages:       stages,
		intermediate: intermediate,
	}
	o.job = job
	o.state = StateProbing

	metrics.JobsSubmittedTotal.WithLabelValues(string(req.Kind)).Inc()
	metrics.JobsInProgress.Inc()
	metrics.JobProgressRatio.Set(0)
	logging.Info("Submitted %s job %s: %s -> %s", req.Kind, job.snapshot.ID, req.Source, job.snapshot.OutputPath)

	submitted := job.snapshot
	o.record("submission", func(ctx context.Context, j Journal) error {
		return j.RecordSubmitted(ctx, submitted)
	})

	if o.prober != nil {
		probeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		job.cancelProbe = cancel
		id := job.snapshot.ID
		o.prober.Probe(probeCtx, req.Source, func(d probe.Duration) { o.onDuration(id, d) })
	}

	handle := job.snapshot.Handle()
	o.startStage(job)
	return handle, nil
}

// Cancel stops the job identified by h. It returns false when h is not the
// in-flight job, including after the job reached a terminal state.
func (o *Orchestrator) Cancel(h Handle) bool {
	o.mu.Lock()
	job := o.job
	if job == nil || job.snapshot.ID != h.ID || !o.state.Active() {
		o.mu.Unlock()
		return false
	}
	execID := job.execID
	o.finish(job, StateCancelled, Failure{})
	o.mu.Unlock()

	if execID != "" {
		o.engine.Cancel(execID)
	}
	return true
}

// CancelCurrent cancels whatever job is in flight.
func (o *Orchestrator) CancelCurrent() bool {
	o.mu.Lock()
	job := o.job
	o.mu.Unlock()
	if job == nil {
		return false
	}
	return o.Cancel(job.snapshot.Handle())
}

// Close cancels any in-flight job and waits for pending events to be
// delivered. It must not be called from an Observer.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	var execID string
	if job := o.job; job != nil {
		execID = job.execID
		o.finish(job, StateCancelled, Failure{})
	}
	o.mu.Unlock()

	if execID != "" {
		o.engine.Cancel(execID)
	}
	o.events.close()
}

func validate(req Request) error {
	if req.Watermark != "" && req.Kind != mediatypes.VideoTranscode && req.Kind != mediatypes.WatermarkOverlay {
		return fmt.Errorf("%w: %s does not take a watermark", command.ErrInvalidOperationParameters, req.Kind)
	}
	return command.Validate(command.Operation{
		Kind:      req.Kind,
		Source:    req.Source,
		Watermark: req.Watermark,
		Quality:   req.Quality,
	})
}

// plan resolves outputs and builds every stage's description. A chain writes
// its first stage into the work directory and overlays that file into the
// output directory.
func (o *Orchestrator) plan(ctx context.Context, req Request) ([]command.Description, string, error) {
	if req.Chained() {
		watermark := o.prepareWatermark(ctx, req.Watermark)

		intermediate, err := o.resolver.ResolveIntermediate(req.Source, mediatypes.VideoTranscode, req.Watermark, watermark)
		if err != nil {
			return nil, "", err
		}
		final, err := o.resolver.Resolve(req.Source, mediatypes.WatermarkOverlay, req.Watermark, watermark, mediatypes.SourceRef(intermediate))
		if err != nil {
			return nil, "", err
		}

		first, err := o.builder.Build(command.Operation{
			Kind:   mediatypes.VideoTranscode,
			Source: req.Source,
		}, intermediate)
		if err != nil {
			return nil, "", err
		}
		second, err := o.builder.Build(command.Operation{
			Kind:      mediatypes.WatermarkOverlay,
			Source:    mediatypes.SourceRef(intermediate),
			Watermark: watermark,
		}, final)
		if err != nil {
			return nil, "", err
		}
		return []command.Description{first, second}, intermediate, nil
	}

	op := command.Operation{
		Kind:    req.Kind,
		Source:  req.Source,
		Quality: req.Quality,
	}
	if req.Kind == mediatypes.WatermarkOverlay {
		op.Watermark = o.prepareWatermark(ctx, req.Watermark)
	}

	path, err := o.resolver.Resolve(req.Source, req.Kind, req.Watermark, op.Watermark)
	if err != nil {
		return nil, "", err
	}
	desc, err := o.builder.Build(op, path)
	if err != nil {
		return nil, "", err
	}
	return []command.Description{desc}, "", nil
}

func (o *Orchestrator) prepareWatermark(ctx context.Context, src mediatypes.SourceRef) mediatypes.SourceRef {
	if o.watermark == nil {
		return src
	}
	prepared, err := o.watermark.Prepare(ctx, src)
	if err != nil {
		logging.Warn("Using watermark %s as is: %v", src, err)
		return src
	}
	return prepared
}

// startStage submits the current stage to the engine. Callers hold o.mu.
func (o *Orchestrator) startStage(job *activeJob) {
	desc := job.stages[job.snapshot.Stage]
	execID, err := o.engine.Execute(desc.Args(), engine.Callbacks{
		OnComplete:   o.onComplete,
		OnLog:        o.onLog,
		OnStatistics: o.onStatistics,
	})
	if err != nil {
		logging.Error("Engine rejected %s stage of job %s: %v", desc.Kind(), job.snapshot.ID, err)
		o.finish(job, StateFailed, Failure{Reason: ReasonEngineSubmissionFailed, Err: err})
		return
	}
	job.execID = execID
	logging.Debug("Job %s stage %d/%d running as execution %s", job.snapshot.ID, job.snapshot.Stage+1, len(job.stages), execID)
}

func (o *Orchestrator) onDuration(jobID string, d probe.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job := o.job
	if job == nil || job.snapshot.ID != jobID {
		return
	}
	job.duration = d
	if d.Known {
		job.snapshot.Duration = d.Seconds
		if job.haveSample {
			o.emitProgress(job)
		}
	}
}

func (o *Orchestrator) onStatistics(execID string, stats engine.Statistics) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job := o.job
	if job == nil || job.execID != execID {
		return
	}
	if o.state == StateProbing {
		o.state = StateRunning
		job.snapshot.State = StateRunning
	}
	job.lastTime = stats.Time
	job.haveSample = true
	o.emitProgress(job)
}

func (o *Orchestrator) onLog(execID string, level logging.LogLevel, line string) {
	if level == logging.LevelInfo {
		level = logging.LevelDebug
	}
	logging.Log(level, "[engine %s] %s", execID, line)
}

func (o *Orchestrator) onComplete(execID string, status int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job := o.job
	if job == nil || job.execID != execID {
		logging.Debug("Dropping completion of superseded execution %s (status %d)", execID, status)
		return
	}

	switch {
	case status == engine.StatusSuccess && job.snapshot.Stage+1 < len(job.stages):
		job.snapshot.Stage++
		job.lastTime = 0
		job.haveSample = false
		next := job.stages[job.snapshot.Stage]
		metrics.ChainedStagesTotal.WithLabelValues(string(next.Kind())).Inc()
		logging.Info("Job %s stage %d/%d complete, starting %s", job.snapshot.ID, job.snapshot.Stage, len(job.stages), next.Kind())
		o.startStage(job)
	case status == engine.StatusSuccess:
		o.finish(job, StateSucceeded, Failure{})
	case status == engine.StatusCancelled:
		o.finish(job, StateCancelled, Failure{})
	default:
		o.finish(job, StateFailed, Failure{Reason: ReasonEngineExecutionFailed, StatusCode: status})
	}
}

// emitProgress queues the overall fraction for job. Emitted values never
// decrease. Callers hold o.mu.
func (o *Orchestrator) emitProgress(job *activeJob) {
	fraction := 0.0
	if job.duration.Known {
		stageFraction := Normalize(job.lastTime.Seconds(), job.duration.Seconds)
		fraction = (float64(job.snapshot.Stage) + stageFraction) / float64(len(job.stages))
	}
	if fraction < job.maxFraction {
		fraction = job.maxFraction
	}
	job.maxFraction = fraction
	percent := Percent(fraction)

	job.snapshot.Progress = fraction
	job.snapshot.Percent = percent
	metrics.JobProgressRatio.Set(fraction)

	obs := job.observer
	o.events.enqueue(func() {
		obs.ProgressChanged(fraction)
		obs.PercentChanged(percent)
	})
}

// finish moves job to a terminal state and queues its final event. Callers
// hold o.mu.
func (o *Orchestrator) finish(job *activeJob, state State, failure Failure) {
	now := time.Now()
	job.snapshot.State = state
	job.snapshot.FinishedAt = now
	if state == StateFailed {
		job.snapshot.Reason = failure.Reason
		job.snapshot.StatusCode = failure.StatusCode
		job.snapshot.Error = failure.Error()
	}
	if job.cancelProbe != nil {
		job.cancelProbe()
	}

	o.state = state
	o.job = nil
	snap := job.snapshot
	o.last = &snap

	kind := string(snap.Kind)
	metrics.JobsFinishedTotal.WithLabelValues(kind, string(state)).Inc()
	metrics.JobDuration.WithLabelValues(kind).Observe(now.Sub(snap.SubmittedAt).Seconds())
	metrics.JobsInProgress.Dec()

	switch state {
	case StateSucceeded:
		logging.Info("Job %s succeeded: %s", snap.ID, snap.OutputPath)
	case StateFailed:
		logging.Error("Job %s failed: %v", snap.ID, failure)
	case StateCancelled:
		logging.Info("Job %s cancelled", snap.ID)
	}

	o.record("outcome", func(ctx context.Context, j Journal) error {
		return j.RecordFinished(ctx, snap)
	})

	obs := job.observer
	intermediate := job.intermediate
	o.events.enqueue(func() {
		if intermediate != "" {
			o.resolver.Discard(intermediate)
		}
		switch state {
		case StateSucceeded:
			obs.Completed(snap.OutputPath)
		case StateFailed:
			obs.Failed(failure)
		case StateCancelled:
			obs.Cancelled()
		}
	})
}

// record queues a journal write behind the events already queued.
func (o *Orchestrator) record(what string, fn func(context.Context, Journal) error) {
	if o.journal == nil {
		return
	}
	j := o.journal
	o.events.enqueue(func() {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := fn(ctx, j); err != nil {
			logging.Warn("Failed to record job %s: %v", what, err)
		}
	})
}

// Normalize returns current/total clamped to [0, 1]. It is 0 for a
// non-positive or non-finite total.
func Normalize(current, total float64) float64 {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) || math.IsNaN(current) {
		return 0
	}
	f := current / total
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Percent converts a fraction to a rounded percentage.
func Percent(fraction float64) int {
	return int(math.Round(fraction * 100))
}

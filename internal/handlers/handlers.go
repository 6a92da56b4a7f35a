package handlers

import (
	"context"
	"time"

	"media-converter/internal/database"
	"media-converter/internal/events"
	"media-converter/internal/inbox"
	"media-converter/internal/orchestrator"
)

// History is the job history store behind the history and readiness endpoints.
type History interface {
	ListJobs(ctx context.Context, limit int) (*database.JobList, error)
	GetJob(ctx context.Context, id string) (*database.JobRecord, error)
	LastOutput(ctx context.Context) (string, error)
	Ping(ctx context.Context) error
}

// EngineChecker reports whether the engine binary can be started.
type EngineChecker interface {
	CheckAvailable() error
}

// MemoryStatus reports memory pressure. New jobs are refused while under
// pressure.
type MemoryStatus interface {
	UnderPressure() bool
	Usage() float64
}

// InboxStatus reports the watch folder queue.
type InboxStatus interface {
	Status() inbox.Status
}

type Handlers struct {
	orch      *orchestrator.Orchestrator
	bus       *events.Bus
	history   History
	engine    EngineChecker
	memory    MemoryStatus
	inbox     InboxStatus
	startTime time.Time
}

func New(orch *orchestrator.Orchestrator, bus *events.Bus, history History, engine EngineChecker) *Handlers {
	return &Handlers{
		orch:      orch,
		bus:       bus,
		history:   history,
		engine:    engine,
		startTime: time.Now(),
	}
}

// SetMemoryStatus enables memory backpressure on job submission.
func (h *Handlers) SetMemoryStatus(m MemoryStatus) {
	h.memory = m
}

// SetInbox exposes the watch folder through GetInbox.
func (h *Handlers) SetInbox(i InboxStatus) {
	h.inbox = i
}

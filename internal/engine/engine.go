package engine

import (
	"time"

	"media-converter/internal/logging"
)

// Completion status codes reported through Callbacks.OnComplete.
const (
	StatusSuccess   = 0
	StatusFailure   = 1
	StatusCancelled = 255
)

// Statistics is one progress sample. Only Time drives progress; the
// encoder counters are informational.
type Statistics struct {
	Time    time.Duration
	Frame   int64
	FPS     float64
	Bitrate string
	Size    int64
	Speed   string
}

// Callbacks are bound to a single execution. Any of them may be nil.
// No callback fires before Execute has returned. OnComplete is called
// exactly once per successful Execute, after every OnStatistics and OnLog
// call for that execution.
type Callbacks struct {
	OnComplete   func(id string, status int)
	OnLog        func(id string, level logging.LogLevel, line string)
	OnStatistics func(id string, stats Statistics)
}

// Engine executes job descriptions asynchronously.
type Engine interface {
	// Execute starts a job and returns its execution id. An error means the
	// job never started and no callback will fire.
	Execute(args []string, cb Callbacks) (string, error)
	// Cancel requests termination of a running execution. Unknown ids are
	// ignored.
	Cancel(id string)
}

func (cb Callbacks) complete(id string, status int) {
	if cb.OnComplete != nil {
		cb.OnComplete(id, status)
	}
}

func (cb Callbacks) log(id string, level logging.LogLevel, line string) {
	if cb.OnLog != nil {
		cb.OnLog(id, level, line)
	}
}

func (cb Callbacks) statistics(id string, stats Statistics) {
	if cb.OnStatistics != nil {
		cb.OnStatistics(id, stats)
	}
}

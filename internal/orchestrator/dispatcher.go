package orchestrator

import (
	"sync"

	"media-converter/internal/logging"
)

// dispatcher runs queued functions one at a time, in submission order, on
// its own goroutine. The queue is unbounded so producers never block while
// holding the orchestrator lock.
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	done   chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// enqueue schedules fn. Calls after close are dropped.
func (d *dispatcher) enqueue(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, fn)
	d.cond.Signal()
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		call(fn)
	}
}

func call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Event handler panicked: %v", r)
		}
	}()
	fn()
}

// close drains the queue and stops the goroutine. It must not be called
// from a queued function.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
}

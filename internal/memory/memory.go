package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// Config controls the Monitor.
type Config struct {
	// LimitBytes is the memory limit; 0 uses GOMEMLIMIT.
	LimitBytes int64
	// CriticalWaterMark is the usage ratio at which pressure is raised.
	CriticalWaterMark float64
	// HighWaterMark is the usage ratio below which pressure clears.
	HighWaterMark float64
	CheckInterval time.Duration
}

// DefaultConfig returns the monitor defaults.
func DefaultConfig() Config {
	return Config{
		CriticalWaterMark: 0.9,
		HighWaterMark:     0.75,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage against the memory limit and reports pressure
// while usage stays above the critical mark. Submissions are refused while
// under pressure.
type Monitor struct {
	config    Config
	limit     int64
	readAlloc func() uint64

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup

	mu       sync.RWMutex
	current  uint64
	pressure bool
}

// NewMonitor creates a monitor. Without a limit it never reports pressure.
func NewMonitor(config Config) *Monitor {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, pressure checks disabled")
	}

	return &Monitor{
		config:    config,
		limit:     limit,
		readAlloc: heapAlloc,
		stop:      make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins periodic sampling.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.check()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop ends sampling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *Monitor) check() {
	alloc := m.readAlloc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc
	if m.limit == 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case !m.pressure && usage >= m.config.CriticalWaterMark:
		logging.Warn("Memory critical (%.1f%% of limit), refusing new jobs", usage*100)
		m.pressure = true
		metrics.MemoryPressure.Set(1)
		metrics.MemoryPressureEvents.Inc()
		go runtime.GC()
	case m.pressure && usage < m.config.HighWaterMark:
		logging.Info("Memory recovered (%.1f%% of limit), accepting jobs", usage*100)
		m.pressure = false
		metrics.MemoryPressure.Set(0)
	}
}

// UnderPressure reports whether usage crossed the critical mark and has not
// yet fallen below the high water mark.
func (m *Monitor) UnderPressure() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pressure
}

// Usage returns the last sampled usage ratio, or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}

// Limit returns the limit the monitor measures against.
func (m *Monitor) Limit() int64 {
	return m.limit
}

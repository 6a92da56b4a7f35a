package metrics

import (
	"sync"
	"time"

	"media-converter/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds job history counts by terminal state
type Stats struct {
	TotalJobs int
	Running   int
	Succeeded int
	Failed    int
	Cancelled int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	JobHistoryTotal.WithLabelValues("running").Set(float64(stats.Running))
	JobHistoryTotal.WithLabelValues("succeeded").Set(float64(stats.Succeeded))
	JobHistoryTotal.WithLabelValues("failed").Set(float64(stats.Failed))
	JobHistoryTotal.WithLabelValues("cancelled").Set(float64(stats.Cancelled))

	logging.Debug("Metrics collected: jobs=%d, succeeded=%d, failed=%d, cancelled=%d",
		stats.TotalJobs, stats.Succeeded, stats.Failed, stats.Cancelled)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"JobsSubmittedTotal", JobsSubmittedTotal},
		{"JobsRejectedTotal", JobsRejectedTotal},
		{"JobsFinishedTotal", JobsFinishedTotal},
		{"JobDuration", JobDuration},
		{"JobsInProgress", JobsInProgress},
		{"JobProgressRatio", JobProgressRatio},
		{"ChainedStagesTotal", ChainedStagesTotal},
		{"ProbeTotal", ProbeTotal},
		{"EngineExecutionsTotal", EngineExecutionsTotal},
		{"OutputCleanupTotal", OutputCleanupTotal},
		{"MemoryUsageRatio", MemoryUsageRatio},
		{"MemoryPressure", MemoryPressure},
		{"MemoryPressureEvents", MemoryPressureEvents},
		{"GoMemLimitBytes", GoMemLimitBytes},
		{"InboxEventsTotal", InboxEventsTotal},
		{"InboxFilesTotal", InboxFilesTotal},
		{"InboxQueueDepth", InboxQueueDepth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(JobsFinishedTotal); n < 12 {
		t.Errorf("JobsFinishedTotal series = %d, want at least 12 (4 kinds x 3 states)", n)
	}
	if n := testutil.CollectAndCount(ProbeTotal); n < 2 {
		t.Errorf("ProbeTotal series = %d, want at least 2", n)
	}
	if n := testutil.CollectAndCount(OutputCleanupTotal); n < 3 {
		t.Errorf("OutputCleanupTotal series = %d, want at least 3", n)
	}
	if n := testutil.CollectAndCount(InboxFilesTotal); n < 4 {
		t.Errorf("InboxFilesTotal series = %d, want at least 4", n)
	}
}

func TestCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(OutputCleanupTotal.WithLabelValues("removed"))
	OutputCleanupTotal.WithLabelValues("removed").Inc()
	after := testutil.ToFloat64(OutputCleanupTotal.WithLabelValues("removed"))

	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

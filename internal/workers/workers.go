package workers

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// OverrideEnv is the environment variable that pins the engine thread count.
const OverrideEnv = "ENGINE_THREADS"

// Count returns the optimal number of threads for a given task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the count to prevent resource exhaustion.
// Use 0 for no limit.
//
// Can be overridden with the ENGINE_THREADS environment variable.
func Count(multiplier float64, limit int) int {
	if override, ok := Override(); ok {
		if limit > 0 && override > limit {
			return limit
		}
		return override
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// Override returns the ENGINE_THREADS value when it is a positive integer.
// "auto" and "0" mean no override.
func Override() (int, bool) {
	raw := strings.TrimSpace(os.Getenv(OverrideEnv))
	if raw == "" || strings.EqualFold(raw, "auto") {
		return 0, false
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return 0, false
	}
	return count, true
}

// ForCPU returns the count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// EngineThreads returns the value passed to the engine's -threads option.
// Without an override it is 0, which lets the encoder pick per codec; with
// an override it is capped by limit.
func EngineThreads(limit int) int {
	if _, ok := Override(); !ok {
		return 0
	}
	return ForCPU(limit)
}

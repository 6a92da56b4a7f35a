/*
Package workers determines thread counts in containerized environments.

# Overview

When running in containers the number of usable CPUs may be limited by cgroup
constraints. Go 1.19+ sets GOMAXPROCS from those limits, while runtime.NumCPU()
still reports the host's CPUs. The helpers here use GOMAXPROCS.

The converter uses this for the engine's -threads option on watermark overlays:

	threads := workers.EngineThreads(16)

# Environment Variable Override

ENGINE_THREADS pins the thread count:

	env:
	- name: ENGINE_THREADS
	  value: "4"

Without an override (unset, "auto" or "0") EngineThreads returns 0 and the encoder
chooses its own thread count, matching "-threads 0" on the command line.
*/
package workers

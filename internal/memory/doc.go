// Package memory keeps the service inside its container memory limit.
//
// [ConfigureFromEnv] sets GOMEMLIMIT from MEMORY_LIMIT (usually passed in
// through the Kubernetes Downward API) scaled by MEMORY_RATIO. The default
// ratio is low because ffmpeg runs in the same container and its memory is
// not part of the Go heap.
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.4"
//
// [Monitor] samples heap usage. Once usage reaches the critical mark it
// reports pressure until usage drops below the high water mark, and the
// HTTP layer refuses new jobs with 503 in the meantime.
package memory

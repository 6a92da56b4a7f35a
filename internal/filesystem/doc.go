/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

Output and work directories are frequently network mounts. This package wraps the
operations the converter performs on them (os.Stat, os.Remove, os.MkdirAll) with retry
logic for ESTALE (stale file handle) errors.

# Key Features

  - Automatic retry with exponential backoff for NFS ESTALE errors (errno 116)
  - Configurable retry attempts (default: 3) and backoff timings
  - Transparent fallback to standard os operations for non-NFS errors
  - Prometheus counters for stale errors, retries and final failures

# Usage

	import "media-converter/internal/filesystem"

	// Remove a stale output before a new job writes to it
	if err := filesystem.RemoveWithRetry(path, filesystem.DefaultRetryConfig()); err != nil {
	    logging.Warn("cleanup failed: %v", err)
	}

RemoveWithRetry treats a missing file as success.
*/
package filesystem

// Package probe determines the total duration of a media source.
//
// Duration is advisory: it only normalizes progress. [Prober.Probe] never
// fails the caller; errors, unsupported sources and timeouts all resolve to
// Unknown, delivered exactly once on a background goroutine.
//
// The default [Inspector] runs ffprobe and reads format.duration from its
// JSON output. ffprobe must be installed and available in the system PATH,
// or configured with FFPROBE_PATH.
package probe

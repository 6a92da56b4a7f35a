// Package output resolves where a job writes its result.
//
// Names are derived from the source's base name with all whitespace removed
// and the extension replaced by the operation kind's (.mp3 for audio, .mp4
// otherwise). Resolution is not content addressed: two sources with the same
// base name map to the same output and the later job wins.
//
// Any file already at the resolved path is removed before the path is
// returned. Removal failures are logged and counted but do not fail the job.
package output

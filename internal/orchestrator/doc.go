// Package orchestrator runs transcode jobs one at a time and reports their
// progress.
//
// Submit validates a [Request], resolves its output path (removing any stale
// file), builds the engine arguments and starts the job while the source's
// duration is probed concurrently. Engine statistics are normalized to a
// fraction of the probed duration, clamped to [0, 1] and held so that an
// [Observer] never sees progress go backwards. Until the duration is known
// progress is reported as 0.
//
// A VideoTranscode request with a watermark runs as a chain: the transcode
// writes to the work directory, and on success a WatermarkOverlay of that
// file is started into the output directory. Completed is reported only
// after the last stage, and progress spans both stages.
//
// Lifecycle:
//
//	idle -> probing -> running -> succeeded | failed | cancelled
//
// Cancel is optimistic: the job is cancelled immediately and any later
// callback from its engine execution is dropped. A terminal job is replaced
// by the next Submit.
//
// Events are delivered in order from a single goroutine, never while the
// orchestrator's lock is held.
package orchestrator

// Package engine executes job descriptions with ffmpeg.
//
// An [Engine] accepts an argument list and per-execution [Callbacks] and
// returns an execution id immediately. The [FFmpeg] implementation runs
// the binary with "-progress pipe:1", turns each progress batch into a
// [Statistics] sample, relays stderr lines as log callbacks at the level
// ffmpeg tagged them with, and reports an exit status when the process
// ends: 0 on success, the process exit code on failure, and
// [StatusCancelled] after Cancel or Cleanup.
//
// Active processes are tracked so they can be killed on shutdown.
package engine

// Convert runs a single conversion job from the command line and shows its
// progress, or prints the job history kept by the media-converter service.
//
// Usage:
//
//	convert audio [-q quality] [-o dir] <source>
//	convert video [-o dir] <source>
//	convert hls [-o dir] <playlist>
//	convert watermark -w <image> [-o dir] <source>
//	convert chain -w <image> [-o dir] <source>
//	convert history [-limit N]
//
// Configuration is read from the same environment variables as the server
// (OUTPUT_DIR, WORK_DIR, DATABASE_DIR, FFMPEG_PATH, FFPROBE_PATH, ...).
// Jobs are recorded in the history database when DATABASE_DIR is usable.
//
// Interrupting the command cancels the running job. The exit status is 0 on
// success, 1 on failure, 2 for usage errors and 130 when cancelled.
package main

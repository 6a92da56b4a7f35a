// Package inbox converts media files dropped into a watched directory.
//
// A [Watcher] listens for filesystem events under WATCH_DIR with fsnotify,
// including subdirectories created later. A file is queued once its size has
// stayed the same for the settle interval, so partially copied files are not
// picked up. Queued files are submitted to the orchestrator one at a time;
// when another job holds the orchestrator the watcher retries later.
// Sources with a succeeded job in history are skipped.
//
// Hidden files and anything under the output or work directories are ignored.
package inbox

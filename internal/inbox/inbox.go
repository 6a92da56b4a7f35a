package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-converter/internal/events"
	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/orchestrator"
)

const (
	// DefaultSettle is how long a file must stay unchanged before it is queued.
	DefaultSettle = 2 * time.Second
	// DefaultRetry is the wait before resubmitting while another job runs.
	DefaultRetry = 5 * time.Second

	minTick = 10 * time.Millisecond
)

// Submitter starts jobs. *orchestrator.Orchestrator satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req orchestrator.Request, obs orchestrator.Observer) (orchestrator.Handle, error)
}

// History reports sources that were already converted.
type History interface {
	HasSucceeded(ctx context.Context, source string) (bool, error)
}

// Config describes the watched directory and the job each new file gets.
type Config struct {
	Dir       string
	Kind      mediatypes.OperationKind
	Watermark mediatypes.SourceRef
	Quality   mediatypes.AudioQuality
	Settle    time.Duration
	Retry     time.Duration
	// Exclude lists directories whose files are never queued, such as the
	// output and work directories when they live inside Dir.
	Exclude []string
}

// Status is a snapshot of the inbox.
type Status struct {
	Dir    string                   `json:"dir"`
	Kind   mediatypes.OperationKind `json:"kind"`
	Queued []string                 `json:"queued"`
	Active string                   `json:"active,omitempty"`
}

// Watcher queues media files that appear in a directory tree and converts
// them one at a time. Files already converted successfully are skipped.
type Watcher struct {
	cfg     Config
	orch    Submitter
	bus     *events.Bus
	history History
	retry   filesystem.RetryConfig

	// Run loop state.
	pending map[string]time.Time
	sizes   map[string]int64
	retryAt time.Time
	done    chan struct{}

	mu     sync.Mutex
	queue  []string
	queued map[string]bool
	active string
}

// New validates cfg. bus and history may be nil.
func New(cfg Config, orch Submitter, bus *events.Bus, history History) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("inbox: directory is required")
	}
	if !cfg.Kind.Valid() {
		return nil, fmt.Errorf("inbox: unsupported operation kind %q", cfg.Kind)
	}
	if cfg.Kind == mediatypes.WatermarkOverlay && cfg.Watermark == "" {
		return nil, errors.New("inbox: watermark jobs need a watermark image")
	}
	if cfg.Quality == 0 {
		cfg.Quality = mediatypes.QualityMedium
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Retry <= 0 {
		cfg.Retry = DefaultRetry
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	cfg.Dir = dir

	return &Watcher{
		cfg:     cfg,
		orch:    orch,
		bus:     bus,
		history: history,
		retry:   filesystem.DefaultRetryConfig(),
		pending: make(map[string]time.Time),
		sizes:   make(map[string]int64),
		done:    make(chan struct{}, 1),
		queued:  make(map[string]bool),
	}, nil
}

// Status returns the queued files in submission order.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Dir:    w.cfg.Dir,
		Kind:   w.cfg.Kind,
		Queued: slices.Clone(w.queue),
		Active: w.active,
	}
}

// Run watches until ctx is cancelled. Files present at startup are queued
// like new ones.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.InboxWatcherErrors.Inc()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	count := w.addTree(watcher, w.cfg.Dir)
	metrics.InboxWatchedDirectories.Set(float64(count))
	logging.Info("Inbox watching %s (%d directories), new files become %s jobs", w.cfg.Dir, count, w.cfg.Kind)

	tick := max(w.cfg.Settle/2, minTick)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Inbox watcher error: %v", err)
			metrics.InboxWatcherErrors.Inc()

		case <-ticker.C:
			w.promoteSettled(ctx)
			w.startNext(ctx)

		case <-w.done:
			w.mu.Lock()
			w.active = ""
			w.mu.Unlock()
			w.startNext(ctx)
		}
	}
}

// addTree watches root and its subdirectories and notes the files already
// in them.
func (w *Watcher) addTree(watcher *fsnotify.Watcher, root string) int {
	count := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if w.skipped(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			w.note(path)
			return nil
		}
		if addErr := watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.InboxWatcherErrors.Inc()
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		logging.Error("failed to walk inbox directory %s: %v", root, err)
		metrics.InboxWatcherErrors.Inc()
	}
	return count
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if w.skipped(event.Name) {
		return
	}
	metrics.InboxEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, event.Name)
		delete(w.sizes, event.Name)
	case event.Op&fsnotify.Create != 0:
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			n := w.addTree(watcher, event.Name)
			metrics.InboxWatchedDirectories.Add(float64(n))
			logging.Debug("Inbox added directory %s", event.Name)
			return
		}
		w.note(event.Name)
	case event.Op&fsnotify.Write != 0:
		w.note(event.Name)
	}
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}

// skipped reports hidden paths and paths under an excluded directory.
func (w *Watcher) skipped(path string) bool {
	if path != w.cfg.Dir && strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	for _, dir := range w.cfg.Exclude {
		if dir == "" {
			continue
		}
		if rel, err := filepath.Rel(dir, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// note records activity on a media file and restarts its settle timer.
func (w *Watcher) note(path string) {
	if !mediatypes.SourceRef(path).IsMedia() {
		return
	}
	w.mu.Lock()
	queued := w.queued[path] || w.active == path
	w.mu.Unlock()
	if queued {
		return
	}
	w.pending[path] = time.Now()
}

// promoteSettled queues files whose size held steady for a settle period.
func (w *Watcher) promoteSettled(ctx context.Context) {
	now := time.Now()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) < w.cfg.Settle {
			continue
		}
		info, err := filesystem.StatWithRetry(path, w.retry)
		if err != nil || info.IsDir() {
			delete(w.pending, path)
			delete(w.sizes, path)
			continue
		}
		if size, seen := w.sizes[path]; !seen || size != info.Size() {
			w.sizes[path] = info.Size()
			w.pending[path] = now
			continue
		}
		delete(w.pending, path)
		delete(w.sizes, path)
		ready = append(ready, path)
	}
	slices.Sort(ready)

	for _, path := range ready {
		if w.history != nil {
			done, err := w.history.HasSucceeded(ctx, path)
			if err != nil {
				logging.Warn("Inbox history lookup for %s failed: %v", path, err)
			} else if done {
				logging.Debug("Inbox skipping %s, already converted", path)
				metrics.InboxFilesTotal.WithLabelValues("skipped").Inc()
				continue
			}
		}

		w.mu.Lock()
		w.queue = append(w.queue, path)
		w.queued[path] = true
		depth := len(w.queue)
		w.mu.Unlock()

		logging.Info("Inbox queued %s", path)
		metrics.InboxFilesTotal.WithLabelValues("queued").Inc()
		metrics.InboxQueueDepth.Set(float64(depth))
	}
}

// startNext submits queued files until one is accepted or the queue is empty.
func (w *Watcher) startNext(ctx context.Context) {
	for {
		w.mu.Lock()
		if w.active != "" || len(w.queue) == 0 || time.Now().Before(w.retryAt) {
			w.mu.Unlock()
			return
		}
		path := w.queue[0]
		w.mu.Unlock()

		req := orchestrator.Request{
			Kind:   w.cfg.Kind,
			Source: mediatypes.SourceRef(path),
		}
		switch w.cfg.Kind {
		case mediatypes.AudioExtract:
			req.Quality = w.cfg.Quality
		case mediatypes.VideoTranscode, mediatypes.WatermarkOverlay:
			req.Watermark = w.cfg.Watermark
		}

		obs := &tracker{done: w.done}
		var jobObs *events.JobObserver
		if w.bus != nil {
			jobObs = w.bus.NewObserver()
			obs.next = jobObs
		}

		handle, err := w.orch.Submit(ctx, req, obs)
		switch {
		case errors.Is(err, orchestrator.ErrJobAlreadyInProgress):
			w.retryAt = time.Now().Add(w.cfg.Retry)
			logging.Debug("Inbox waiting for the running job before %s", path)
			return
		case errors.Is(err, orchestrator.ErrClosed):
			return
		}

		w.mu.Lock()
		w.queue = w.queue[1:]
		delete(w.queued, path)
		if err == nil {
			w.active = path
		}
		depth := len(w.queue)
		w.mu.Unlock()
		metrics.InboxQueueDepth.Set(float64(depth))

		if err != nil {
			logging.Warn("Inbox rejected %s: %v", path, err)
			metrics.InboxFilesTotal.WithLabelValues("rejected").Inc()
			continue
		}
		if jobObs != nil {
			jobObs.Bind(handle)
		}
		metrics.InboxFilesTotal.WithLabelValues("submitted").Inc()
		return
	}
}

// tracker forwards observer calls and signals the watcher when the job ends.
type tracker struct {
	next orchestrator.Observer
	done chan<- struct{}
}

func (t *tracker) ProgressChanged(fraction float64) {
	if t.next != nil {
		t.next.ProgressChanged(fraction)
	}
}

func (t *tracker) PercentChanged(percent int) {
	if t.next != nil {
		t.next.PercentChanged(percent)
	}
}

func (t *tracker) Completed(outputPath string) {
	if t.next != nil {
		t.next.Completed(outputPath)
	}
	t.finish()
}

func (t *tracker) Failed(failure orchestrator.Failure) {
	if t.next != nil {
		t.next.Failed(failure)
	}
	t.finish()
}

func (t *tracker) Cancelled() {
	if t.next != nil {
		t.next.Cancelled()
	}
	t.finish()
}

func (t *tracker) finish() {
	select {
	case t.done <- struct{}{}:
	default:
	}
}

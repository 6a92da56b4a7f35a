package streaming

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

var (
	// ErrWriteTimeout means the client accepted data too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone means the request context ended before the stream did.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamClosed is returned by writes after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// contentTypes covers the output containers, which the mime package does
// not know on every system.
var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".mp3": "audio/mpeg",
}

// Config controls a Writer.
type Config struct {
	// WriteTimeout bounds each chunk write.
	WriteTimeout time.Duration
	// MaxDuration bounds the whole stream (0 = unlimited).
	MaxDuration time.Duration
	// ChunkSize splits large writes (0 = write as received).
	ChunkSize int
}

// DefaultConfig returns the download defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// Writer is an http.ResponseWriter that puts a deadline on every chunk it
// writes, so a stalled client cannot pin the handler. Deadlines are set
// through http.ResponseController; writers that do not support deadlines
// are written to directly.
type Writer struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	config Config
	start  time.Time

	mu        sync.Mutex
	written   int64
	closed    bool
	deadlines bool
}

// NewWriter wraps w. ctx is normally the request context.
func NewWriter(ctx context.Context, w http.ResponseWriter, config Config) *Writer {
	return &Writer{
		w:         w,
		rc:        http.NewResponseController(w),
		ctx:       ctx,
		config:    config,
		start:     time.Now(),
		deadlines: config.WriteTimeout > 0,
	}
}

func (sw *Writer) Header() http.Header {
	return sw.w.Header()
}

func (sw *Writer) WriteHeader(statusCode int) {
	sw.w.WriteHeader(statusCode)
}

// Write writes p in chunks, each under its own deadline.
func (sw *Writer) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.closed {
		return 0, ErrStreamClosed
	}

	total := 0
	for len(p) > 0 {
		if sw.ctx.Err() != nil {
			return total, ErrClientGone
		}
		if sw.config.MaxDuration > 0 && time.Since(sw.start) > sw.config.MaxDuration {
			return total, ErrWriteTimeout
		}

		chunk := p
		if sw.config.ChunkSize > 0 && len(chunk) > sw.config.ChunkSize {
			chunk = chunk[:sw.config.ChunkSize]
		}

		n, err := sw.writeChunk(chunk)
		total += n
		sw.written += int64(n)
		if err != nil {
			return total, err
		}
		p = p[len(chunk):]
	}
	return total, nil
}

func (sw *Writer) writeChunk(chunk []byte) (int, error) {
	if sw.deadlines {
		err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout))
		if errors.Is(err, http.ErrNotSupported) {
			sw.deadlines = false
		}
	}

	n, err := sw.w.Write(chunk)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n, ErrWriteTimeout
		}
		if sw.ctx.Err() != nil {
			return n, ErrClientGone
		}
		return n, err
	}

	if sw.config.ChunkSize > 0 {
		if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return n, err
		}
	}
	return n, nil
}

// Close rejects further writes and lifts the write deadline.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.closed {
		return nil
	}
	sw.closed = true
	if sw.deadlines {
		if err := sw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	return nil
}

// Stats returns the bytes written and the time since the writer was created.
func (sw *Writer) Stats() (int64, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.written, time.Since(sw.start)
}

// ServeFile sends the file at path as an attachment. Range and conditional
// requests are handled by http.ServeContent.
func ServeFile(w http.ResponseWriter, r *http.Request, path string, config Config) error {
	f, err := os.Open(path)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("missing").Inc()
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return err
	}
	if info.IsDir() {
		metrics.DownloadsTotal.WithLabelValues("missing").Inc()
		return fmt.Errorf("%s is a directory: %w", path, os.ErrNotExist)
	}

	sw := NewWriter(r.Context(), w, config)
	defer func() {
		if err := sw.Close(); err != nil {
			logging.Warn("Failed to close stream writer: %v", err)
		}
	}()

	name := filepath.Base(path)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(sw, r, name, info.ModTime(), f)

	written, elapsed := sw.Stats()
	metrics.DownloadBytesTotal.Add(float64(written))
	metrics.DownloadsTotal.WithLabelValues("served").Inc()
	logging.Debug("Served %s: %d bytes in %v", name, written, elapsed)
	return nil
}

package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"media-converter/internal/command"
	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// ErrCleanupFailed marks a stale output file that could not be removed. It
// is logged and counted, never returned to callers.
var ErrCleanupFailed = errors.New("stale output cleanup failed")

// ErrOutputIsInput marks an output path that names one of the job's own
// inputs. Nothing is removed when it is returned.
var ErrOutputIsInput = fmt.Errorf("%w: output path is one of the inputs", command.ErrInvalidOperationParameters)

// Resolver derives output paths for jobs.
type Resolver struct {
	outputDir string
	workDir   string
	retry     filesystem.RetryConfig
}

// NewResolver creates a resolver writing final outputs to outputDir and
// intermediate chain outputs to workDir.
func NewResolver(outputDir, workDir string) *Resolver {
	return &Resolver{
		outputDir: outputDir,
		workDir:   workDir,
		retry:     filesystem.DefaultRetryConfig(),
	}
}

// OutputDir returns the final output directory.
func (r *Resolver) OutputDir() string { return r.outputDir }

// WorkDir returns the intermediate output directory.
func (r *Resolver) WorkDir() string { return r.workDir }

// FileName derives the output file name for src and kind: the base name
// with whitespace removed and its extension replaced by the kind's.
func FileName(src mediatypes.SourceRef, kind mediatypes.OperationKind) (string, error) {
	base := removeWhitespace(src.BaseName())

	if kind == mediatypes.HLSToContainer {
		if ext := filepath.Ext(base); mediatypes.PlaylistExtensions[strings.ToLower(ext)] {
			base = strings.TrimSuffix(base, ext)
		}
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if base == "" || base == "." || base == ".." {
		return "", fmt.Errorf("%w: cannot derive an output name from %q", command.ErrInvalidOperationParameters, src)
	}
	return base + kind.Extension(), nil
}

// Resolve returns the final output path for src and kind, removing any
// file already at that path. The path may not be src or any of inputs.
func (r *Resolver) Resolve(src mediatypes.SourceRef, kind mediatypes.OperationKind, inputs ...mediatypes.SourceRef) (string, error) {
	return r.resolveIn(r.outputDir, src, kind, inputs)
}

// ResolveIntermediate returns a path in the work directory for the first
// stage of a chained job, removing any file already at that path.
func (r *Resolver) ResolveIntermediate(src mediatypes.SourceRef, kind mediatypes.OperationKind, inputs ...mediatypes.SourceRef) (string, error) {
	return r.resolveIn(r.workDir, src, kind, inputs)
}

func (r *Resolver) resolveIn(dir string, src mediatypes.SourceRef, kind mediatypes.OperationKind, inputs []mediatypes.SourceRef) (string, error) {
	name, err := FileName(src, kind)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return "", fmt.Errorf("%w: no output directory configured", command.ErrInvalidOperationParameters)
	}

	if err := filesystem.MkdirAllWithRetry(dir, 0o755, r.retry); err != nil {
		logging.Warn("Failed to create output directory %s: %v", dir, err)
	}

	path := filepath.Join(dir, name)
	if in, ok := r.matchInput(path, append([]mediatypes.SourceRef{src}, inputs...)); ok {
		return "", fmt.Errorf("%w: %s would replace %s", ErrOutputIsInput, path, in)
	}
	r.removeStale(path)
	return path, nil
}

// matchInput reports the first local input that is the same file as path,
// either by absolute name or, when both exist, by identity.
func (r *Resolver) matchInput(path string, inputs []mediatypes.SourceRef) (mediatypes.SourceRef, bool) {
	target := absPath(path)
	targetInfo, targetErr := filesystem.StatWithRetry(target, r.retry)

	for _, in := range inputs {
		if in == "" || in.IsRemote() {
			continue
		}
		local := absPath(strings.TrimPrefix(string(in), "file://"))
		if local == target {
			return in, true
		}
		if targetErr != nil {
			continue
		}
		if info, err := filesystem.StatWithRetry(local, r.retry); err == nil && os.SameFile(targetInfo, info) {
			return in, true
		}
	}
	return "", false
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// removeStale deletes a file left at path by an earlier job. Failures are
// logged; the engine is expected to fail on its own if it cannot write.
func (r *Resolver) removeStale(path string) {
	exists, err := filesystem.Exists(path, r.retry)
	if err != nil {
		logging.Warn("%v: stat %s: %v", ErrCleanupFailed, path, err)
		metrics.OutputCleanupTotal.WithLabelValues("failed").Inc()
		return
	}
	if !exists {
		logging.Debug("No stale output at %s", path)
		metrics.OutputCleanupTotal.WithLabelValues("absent").Inc()
		return
	}

	if err := filesystem.RemoveWithRetry(path, r.retry); err != nil {
		logging.Warn("%v: remove %s: %v", ErrCleanupFailed, path, err)
		metrics.OutputCleanupTotal.WithLabelValues("failed").Inc()
		return
	}

	logging.Info("Removed stale output %s", path)
	metrics.OutputCleanupTotal.WithLabelValues("removed").Inc()
}

// Discard removes an intermediate file once it is no longer needed.
func (r *Resolver) Discard(path string) {
	if path == "" {
		return
	}
	if err := filesystem.RemoveWithRetry(path, r.retry); err != nil {
		logging.Warn("Failed to remove intermediate output %s: %v", path, err)
	}
}

func removeWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

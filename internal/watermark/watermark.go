package watermark

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// DefaultMaxWidth is the widest watermark overlaid without resizing.
const DefaultMaxWidth = 512

// ErrNotImage is returned for watermark sources without an image extension.
var ErrNotImage = errors.New("watermark is not a supported image")

// Preparer fits local watermark images to a maximum width before they are
// overlaid. Resized copies are written as PNG into the work directory.
type Preparer struct {
	workDir  string
	maxWidth int
	retry    filesystem.RetryConfig
}

// NewPreparer creates a preparer. A non-positive maxWidth disables resizing.
func NewPreparer(workDir string, maxWidth int) *Preparer {
	return &Preparer{
		workDir:  workDir,
		maxWidth: maxWidth,
		retry:    filesystem.DefaultRetryConfig(),
	}
}

// Prepare returns the image to overlay for src. Remote sources and images
// already within the width limit are returned unchanged.
func (p *Preparer) Prepare(ctx context.Context, src mediatypes.SourceRef) (mediatypes.SourceRef, error) {
	if src.IsRemote() {
		metrics.WatermarkPreparedTotal.WithLabelValues("remote").Inc()
		return src, nil
	}

	prepared, result, err := p.prepare(ctx, src.String())
	if err != nil {
		metrics.WatermarkPreparedTotal.WithLabelValues("error").Inc()
		return src, err
	}
	metrics.WatermarkPreparedTotal.WithLabelValues(result).Inc()
	return mediatypes.SourceRef(prepared), nil
}

func (p *Preparer) prepare(ctx context.Context, path string) (string, string, error) {
	if !mediatypes.ImageExtensions[strings.ToLower(filepath.Ext(path))] {
		return "", "", fmt.Errorf("%w: %s", ErrNotImage, path)
	}

	width, height, err := dimensions(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read watermark %s: %w", path, err)
	}
	if p.maxWidth <= 0 || width <= p.maxWidth {
		logging.Debug("Watermark %s is %dx%d, using as is", path, width, height)
		return path, "unchanged", nil
	}

	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", "", fmt.Errorf("failed to open watermark: %w", err)
	}
	fitted := imaging.Resize(img, p.maxWidth, 0, imaging.Lanczos)

	if err := filesystem.MkdirAllWithRetry(p.workDir, 0o755, p.retry); err != nil {
		return "", "", fmt.Errorf("failed to create work directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(p.workDir, fmt.Sprintf("%s-w%d.png", base, p.maxWidth))
	if err := imaging.Save(fitted, out); err != nil {
		return "", "", fmt.Errorf("failed to save resized watermark: %w", err)
	}

	b := fitted.Bounds()
	logging.Info("Resized watermark %s from %dx%d to %dx%d", path, width, height, b.Dx(), b.Dy())
	return out, "resized", nil
}

// dimensions reads an image's size without fully decoding it.
func dimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close watermark %s: %v", path, err)
		}
	}()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

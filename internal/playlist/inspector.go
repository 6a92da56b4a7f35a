package playlist

import (
	"context"
	"errors"
	"fmt"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/probe"
)

// Inspector wraps another inspector. When it cannot measure a local HLS
// playlist, the duration is summed from the playlist's #EXTINF entries,
// following the highest-bandwidth variant of a master playlist.
type Inspector struct {
	next probe.Inspector
}

// NewInspector wraps next.
func NewInspector(next probe.Inspector) *Inspector {
	return &Inspector{next: next}
}

func (i *Inspector) Duration(ctx context.Context, src mediatypes.SourceRef) (float64, error) {
	seconds, err := i.next.Duration(ctx, src)
	if err == nil && seconds > 0 {
		return seconds, nil
	}
	if !src.IsPlaylist() || src.IsRemote() || ctx.Err() != nil {
		return seconds, err
	}

	total, perr := localDuration(string(src))
	if perr != nil {
		logging.Debug("Playlist fallback for %s failed: %v", src, perr)
		if err == nil {
			err = perr
		}
		return 0, err
	}
	logging.Debug("Duration of %s from playlist entries: %.3fs", src, total)
	return total, nil
}

func localDuration(path string) (float64, error) {
	p, err := ParseFile(path)
	if err != nil {
		return 0, err
	}
	if p.IsMaster() {
		best := p.Variants[0]
		for _, v := range p.Variants[1:] {
			if v.Bandwidth > best.Bandwidth {
				best = v
			}
		}
		variantPath, ok := p.LocalVariantPath(best)
		if !ok {
			return 0, fmt.Errorf("variant %s is remote", best.URI)
		}
		if p, err = ParseFile(variantPath); err != nil {
			return 0, err
		}
		if p.IsMaster() {
			return 0, errors.New("nested master playlist")
		}
	}

	total := p.Duration()
	if total <= 0 {
		return 0, probe.ErrDurationUnknown
	}
	return total, nil
}

var _ probe.Inspector = (*Inspector)(nil)

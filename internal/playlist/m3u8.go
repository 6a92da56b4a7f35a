package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNotPlaylist is returned for input that does not start with #EXTM3U.
var ErrNotPlaylist = errors.New("not an m3u8 playlist")

const maxLineSize = 64 * 1024

// Segment is one media segment of a media playlist.
type Segment struct {
	URI      string
	Duration float64
}

// Variant is one stream of a master playlist.
type Variant struct {
	URI       string
	Bandwidth int
}

// Playlist is a parsed HLS playlist. A master playlist has Variants and no
// Segments.
type Playlist struct {
	Path           string
	TargetDuration float64
	Segments       []Segment
	Variants       []Variant
	Ended          bool
}

// IsMaster reports whether p lists variant streams.
func (p *Playlist) IsMaster() bool {
	return len(p.Variants) > 0
}

// Duration sums the segment durations.
func (p *Playlist) Duration() float64 {
	var total float64
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// Parse reads an m3u8 playlist.
func Parse(r io.Reader) (*Playlist, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)

	p := &Playlist{}
	first := true
	var pendingDuration float64
	var pendingSegment, pendingVariant bool
	var bandwidth int

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			if line != "#EXTM3U" {
				return nil, ErrNotPlaylist
			}
			first = false
			continue
		}
		if line == "" {
			continue
		}

		tag, value, _ := strings.Cut(line, ":")
		switch {
		case tag == "#EXTINF":
			d, _, _ := strings.Cut(value, ",")
			seconds, err := strconv.ParseFloat(strings.TrimSpace(d), 64)
			if err != nil || seconds < 0 {
				return nil, fmt.Errorf("invalid #EXTINF duration %q", d)
			}
			pendingDuration = seconds
			pendingSegment = true
		case tag == "#EXT-X-TARGETDURATION":
			td, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid #EXT-X-TARGETDURATION %q", value)
			}
			p.TargetDuration = td
		case tag == "#EXT-X-STREAM-INF":
			pendingVariant = true
			bandwidth = attributeInt(value, "BANDWIDTH")
		case tag == "#EXT-X-ENDLIST":
			p.Ended = true
		case strings.HasPrefix(line, "#"):
			// Other tags and comments carry nothing needed here.
		case pendingVariant:
			p.Variants = append(p.Variants, Variant{URI: line, Bandwidth: bandwidth})
			pendingVariant = false
		case pendingSegment:
			p.Segments = append(p.Segments, Segment{URI: line, Duration: pendingDuration})
			pendingSegment = false
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if first {
		return nil, ErrNotPlaylist
	}
	return p, nil
}

// ParseFile reads the playlist at path.
func ParseFile(path string) (*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// LocalVariantPath resolves a variant URI against the playlist's directory.
// Remote URIs are reported as not local.
func (p *Playlist) LocalVariantPath(v Variant) (string, bool) {
	if strings.Contains(v.URI, "://") {
		return "", false
	}
	uri := filepath.FromSlash(v.URI)
	if filepath.IsAbs(uri) {
		return uri, true
	}
	return filepath.Join(filepath.Dir(p.Path), uri), true
}

// attributeInt reads an integer attribute from an attribute list such as
// BANDWIDTH=1280000,RESOLUTION=1280x720.
func attributeInt(list, name string) int {
	for _, attr := range strings.Split(list, ",") {
		k, v, ok := strings.Cut(attr, "=")
		if ok && strings.TrimSpace(k) == name {
			n, _ := strconv.Atoi(strings.TrimSpace(v))
			return n
		}
	}
	return 0
}

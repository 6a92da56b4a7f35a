package mediatypes

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// SourceRef locates an input media asset: a local file path or a remote URL.
type SourceRef string

// IsRemote reports whether the source is a URL with a network scheme.
func (s SourceRef) IsRemote() bool {
	u, err := url.Parse(string(s))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "rtmp", "rtsp", "srt", "udp", "tcp":
		return true
	}
	return false
}

// BaseName returns the last path element of the source with directory
// components, query and fragment removed. File URLs are treated as paths.
func (s SourceRef) BaseName() string {
	raw := string(s)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		raw = u.Path
		name := path.Base(raw)
		if name == "." || name == "/" {
			return ""
		}
		return name
	}
	name := filepath.Base(filepath.FromSlash(raw))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// Ext returns the lowercase extension of the base name, including the dot.
func (s SourceRef) Ext() string {
	return strings.ToLower(filepath.Ext(s.BaseName()))
}

// IsPlaylist reports whether the source looks like an HLS playlist.
func (s SourceRef) IsPlaylist() bool {
	return PlaylistExtensions[s.Ext()]
}

// String implements fmt.Stringer.
func (s SourceRef) String() string {
	return string(s)
}

// AudioQuality is a constant-bitrate target in kbps.
type AudioQuality int

const (
	// QualityLow is 64 kbps.
	QualityLow AudioQuality = 64
	// QualityMedium is 128 kbps.
	QualityMedium AudioQuality = 128
	// QualityHigh is 256 kbps.
	QualityHigh AudioQuality = 256
	// QualityVeryHigh is 320 kbps.
	QualityVeryHigh AudioQuality = 320
)

// Valid reports whether q is one of the supported bitrates.
func (q AudioQuality) Valid() bool {
	switch q {
	case QualityLow, QualityMedium, QualityHigh, QualityVeryHigh:
		return true
	}
	return false
}

// Bitrate returns the bitrate in the form the engine expects, e.g. "128k".
func (q AudioQuality) Bitrate() string {
	return strconv.Itoa(int(q)) + "k"
}

// String returns the quality name.
func (q AudioQuality) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	case QualityVeryHigh:
		return "veryhigh"
	default:
		return fmt.Sprintf("unknown(%d)", int(q))
	}
}

// ParseAudioQuality accepts a quality name ("low", "medium", "high",
// "veryhigh") or a bitrate ("128", "128k").
func ParseAudioQuality(s string) (AudioQuality, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "low":
		return QualityLow, nil
	case "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	case "veryhigh", "very_high", "very-high":
		return QualityVeryHigh, nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(v, "k"))
	if err == nil && AudioQuality(n).Valid() {
		return AudioQuality(n), nil
	}
	return 0, fmt.Errorf("unsupported audio quality %q", s)
}

// OperationKind selects the job description shape and output extension.
type OperationKind string

const (
	// AudioExtract re-encodes the audio of a source to MP3.
	AudioExtract OperationKind = "audio"
	// VideoTranscode re-encodes a source to H.264 MP4.
	VideoTranscode OperationKind = "video"
	// HLSToContainer remuxes an HLS playlist into a single MP4 file.
	HLSToContainer OperationKind = "hls"
	// WatermarkOverlay composites a watermark image centered over a source.
	WatermarkOverlay OperationKind = "watermark"
)

// AllKinds lists every operation kind in a stable order.
var AllKinds = []OperationKind{AudioExtract, VideoTranscode, HLSToContainer, WatermarkOverlay}

// Valid reports whether k is a known operation kind.
func (k OperationKind) Valid() bool {
	switch k {
	case AudioExtract, VideoTranscode, HLSToContainer, WatermarkOverlay:
		return true
	}
	return false
}

// Extension returns the output file extension for the kind.
func (k OperationKind) Extension() string {
	if k == AudioExtract {
		return ".mp3"
	}
	return ".mp4"
}

// ParseOperationKind converts a kind name into an OperationKind.
func ParseOperationKind(s string) (OperationKind, error) {
	k := OperationKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unsupported operation kind %q", s)
	}
	return k, nil
}

// PlaylistExtensions maps file extensions to whether they are HLS playlists.
var PlaylistExtensions = map[string]bool{
	".m3u8": true,
}

// ImageExtensions maps file extensions to whether they are supported
// watermark image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// MediaExtensions maps file extensions to whether they are audio or video
// containers the engine accepts as a source.
var MediaExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".mkv": true, ".avi": true,
	".wmv": true, ".flv": true, ".webm": true, ".ts": true, ".mts": true,
	".mpg": true, ".mpeg": true, ".3gp": true,
	".mp3": true, ".m4a": true, ".aac": true, ".wav": true, ".flac": true,
	".ogg": true, ".opus": true, ".wma": true,
}

// IsMedia reports whether the source has an audio, video or playlist
// extension.
func (s SourceRef) IsMedia() bool {
	ext := s.Ext()
	return MediaExtensions[ext] || PlaylistExtensions[ext]
}

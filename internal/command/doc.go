// Package command builds engine job descriptions.
//
// A description is a typed argument list, never a shell string, so source
// names containing spaces, quotes or other special characters are passed to
// the engine unchanged. The builder is pure; output paths come from the
// output package and are handed in by the caller.
//
// Shapes per kind:
//   - audio: decode, re-encode audio as MP3 at the requested bitrate
//   - video: re-encode video as H.264 at CRF 23, audio as AAC
//   - watermark: two inputs, overlay centered, re-encode
//   - hls: decode a playlist, re-encode with the ultrafast preset into one MP4
package command

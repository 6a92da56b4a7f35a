// Package playlist reads HLS (m3u8) playlists.
//
// ffprobe often cannot report a total duration for HLS input, which leaves
// progress at zero for the whole remux. [Inspector] wraps the ffprobe
// inspector and, for local playlists, sums the #EXTINF durations instead.
// For a master playlist the highest-bandwidth variant is measured; variant
// URIs are resolved relative to the master playlist's directory.
package playlist

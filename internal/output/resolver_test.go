package output

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"media-converter/internal/command"
	"media-converter/internal/mediatypes"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		source   mediatypes.SourceRef
		kind     mediatypes.OperationKind
		expected string
	}{
		{"My Clip.mp4", mediatypes.VideoTranscode, "MyClip.mp4"},
		{"/videos/My Clip.mp4", mediatypes.VideoTranscode, "MyClip.mp4"},
		{"/music/My Song.wav", mediatypes.AudioExtract, "MySong.mp3"},
		{"/music/tab\tbed.flac", mediatypes.AudioExtract, "tabbed.mp3"},
		{"/videos/clip.mov", mediatypes.WatermarkOverlay, "clip.mp4"},
		{"https://cdn.example.com/live/index.m3u8?token=1", mediatypes.HLSToContainer, "index.mp4"},
		{"https://cdn.example.com/live/show one.M3U8", mediatypes.HLSToContainer, "showone.mp4"},
		{"/videos/noext", mediatypes.VideoTranscode, "noext.mp4"},
		{"/videos/archive.tar.gz", mediatypes.VideoTranscode, "archive.tar.mp4"},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			got, err := FileName(tt.source, tt.kind)
			if err != nil {
				t.Fatalf("FileName() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("FileName(%q, %s) = %q, want %q", tt.source, tt.kind, got, tt.expected)
			}
		})
	}
}

func TestFileNameInvalid(t *testing.T) {
	for _, src := range []mediatypes.SourceRef{"", "/", "https://example.com/", "   "} {
		if _, err := FileName(src, mediatypes.VideoTranscode); !errors.Is(err, command.ErrInvalidOperationParameters) {
			t.Errorf("FileName(%q) error = %v, want ErrInvalidOperationParameters", src, err)
		}
	}
}

func TestResolveRemovesStaleFile(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, filepath.Join(dir, ".work"))

	stale := filepath.Join(dir, "MyClip.mp4")
	if err := os.WriteFile(stale, []byte("old output"), 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := r.Resolve("My Clip.mp4", mediatypes.VideoTranscode)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if path != stale {
		t.Errorf("Resolve() = %q, want %q", path, stale)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file was not removed before the path was returned")
	}
}

func TestResolveWithoutStaleFile(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(filepath.Join(dir, "out"), filepath.Join(dir, "work"))

	path, err := r.Resolve("/in/song.wav", mediatypes.AudioExtract)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := filepath.Join(dir, "out", "song.mp3"); path != want {
		t.Errorf("Resolve() = %q, want %q", path, want)
	}
	if info, err := os.Stat(filepath.Join(dir, "out")); err != nil || !info.IsDir() {
		t.Error("output directory was not created")
	}
}

func TestResolveCleanupFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, dir)

	// A non-empty directory at the target cannot be removed with os.Remove.
	blocked := filepath.Join(dir, "clip.mp4")
	if err := os.MkdirAll(filepath.Join(blocked, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	path, err := r.Resolve("/in/clip.mov", mediatypes.VideoTranscode)
	if err != nil {
		t.Fatalf("Resolve() error = %v, cleanup failures must not propagate", err)
	}
	if path != blocked {
		t.Errorf("Resolve() = %q, want %q", path, blocked)
	}
}

func TestResolveIntermediate(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, ".work")
	r := NewResolver(dir, work)

	path, err := r.ResolveIntermediate("/in/My Clip.mov", mediatypes.VideoTranscode)
	if err != nil {
		t.Fatalf("ResolveIntermediate() error = %v", err)
	}
	if want := filepath.Join(work, "MyClip.mp4"); path != want {
		t.Errorf("ResolveIntermediate() = %q, want %q", path, want)
	}

	if err := os.WriteFile(path, []byte("stage one"), 0o644); err != nil {
		t.Fatal(err)
	}
	r.Discard(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Discard() did not remove the intermediate file")
	}
	r.Discard("")
}

func TestResolveNoDirectory(t *testing.T) {
	r := NewResolver("", "")
	if _, err := r.Resolve("/in/clip.mp4", mediatypes.VideoTranscode); !errors.Is(err, command.ErrInvalidOperationParameters) {
		t.Errorf("Resolve() error = %v, want ErrInvalidOperationParameters", err)
	}
}

func TestResolveRefusesToReplaceSource(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, filepath.Join(dir, ".work"))

	source := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(source, []byte("earlier transcode"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, src := range []mediatypes.SourceRef{
		mediatypes.SourceRef(source),
		mediatypes.SourceRef("file://" + source),
		mediatypes.SourceRef(filepath.Join(dir, ".", "sub", "..", "clip.mp4")),
	} {
		for _, kind := range []mediatypes.OperationKind{mediatypes.WatermarkOverlay, mediatypes.VideoTranscode} {
			_, err := r.Resolve(src, kind)
			if !errors.Is(err, ErrOutputIsInput) || !errors.Is(err, command.ErrInvalidOperationParameters) {
				t.Errorf("Resolve(%q, %s) error = %v, want ErrOutputIsInput", src, kind, err)
			}
		}
	}

	data, err := os.ReadFile(source)
	if err != nil || string(data) != "earlier transcode" {
		t.Fatalf("source = %q, %v; want it untouched", data, err)
	}
}

func TestResolveRefusesToReplaceLinkedSource(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(out, filepath.Join(dir, "work"))

	// The output name exists as a link to the source under another name.
	source := filepath.Join(dir, "original.mp3")
	if err := os.WriteFile(source, []byte("song"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Link(source, filepath.Join(out, "song.mp3")); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}

	_, err := r.Resolve(mediatypes.SourceRef(filepath.Join(out, "song.wav")), mediatypes.AudioExtract, mediatypes.SourceRef(source))
	if !errors.Is(err, ErrOutputIsInput) {
		t.Fatalf("Resolve() error = %v, want ErrOutputIsInput", err)
	}
	if _, err := os.Stat(filepath.Join(out, "song.mp3")); err != nil {
		t.Errorf("linked source was removed: %v", err)
	}
}

func TestResolveRefusesToReplaceExtraInput(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, dir)

	intermediate := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(intermediate, []byte("stage one"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := r.Resolve("/in/clip.mov", mediatypes.WatermarkOverlay, "", "https://cdn.example.com/logo.png", mediatypes.SourceRef(intermediate))
	if !errors.Is(err, ErrOutputIsInput) {
		t.Fatalf("Resolve() error = %v, want ErrOutputIsInput", err)
	}
	if _, err := os.Stat(intermediate); err != nil {
		t.Errorf("intermediate was removed: %v", err)
	}
}

func TestResolveIgnoresRemoteSourceWithSameName(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, dir)

	path, err := r.Resolve("https://cdn.example.com/clip.mp4", mediatypes.VideoTranscode)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := filepath.Join(dir, "clip.mp4"); path != want {
		t.Errorf("Resolve() = %q, want %q", path, want)
	}
}

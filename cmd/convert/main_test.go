package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"media-converter/internal/database"
	"media-converter/internal/engine"
	"media-converter/internal/mediatypes"
	"media-converter/internal/startup"
)

// autoEngine finishes every execution on its own with the given status.
// When hold is set, executions only end when cancelled.
type autoEngine struct {
	mu     sync.Mutex
	status int
	hold   bool
	execs  map[string]engine.Callbacks
	args   [][]string
}

func (e *autoEngine) Execute(args []string, cb engine.Callbacks) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.execs == nil {
		e.execs = make(map[string]engine.Callbacks)
	}
	id := fmt.Sprintf("exec-%d", len(e.args)+1)
	e.execs[id] = cb
	e.args = append(e.args, args)
	if !e.hold {
		go func() {
			cb.OnStatistics(id, engine.Statistics{Time: 5 * time.Second})
			cb.OnComplete(id, e.status)
		}()
	}
	return id, nil
}

func (e *autoEngine) Cancel(id string) {
	e.mu.Lock()
	cb, ok := e.execs[id]
	delete(e.execs, id)
	e.mu.Unlock()
	if ok {
		go cb.OnComplete(id, 255)
	}
}

func (e *autoEngine) started() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.args)
}

type fixedInspector float64

func (f fixedInspector) Duration(context.Context, mediatypes.SourceRef) (float64, error) {
	return float64(f), nil
}

func testEnv(t *testing.T, eng engine.Engine, history *database.Database) (jobEnv, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	return jobEnv{
		config: &startup.Config{
			OutputDir:    filepath.Join(dir, "out"),
			WorkDir:      filepath.Join(dir, "work"),
			ProbeTimeout: time.Second,
		},
		engine:    eng,
		inspector: fixedInspector(10),
		history:   history,
		stdout:    &stdout,
		stderr:    &stderr,
	}, &stdout, &stderr
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"audio", "audio"},
		{"re-set_pw2", "re-set_pw2"},
		{"rm -rf /", "rm_-rf__"},
		{"\x1b[31mred", "__31mred"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeCommand(tt.in); got != tt.want {
			t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf)
	for _, cmd := range []string{"audio", "video", "hls", "watermark", "chain", "history"} {
		if !strings.Contains(buf.String(), cmd) {
			t.Errorf("usage missing %q", cmd)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", nil, exitUsage},
		{"unknown", []string{"explode"}, exitUsage},
		{"help", []string{"help"}, exitOK},
		{"missing source", []string{"video"}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args, io.Discard, io.Discard); got != tt.want {
				t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseJobArgs(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []string
		kind    mediatypes.OperationKind
		quality mediatypes.AudioQuality
		wm      string
		out     string
		wantErr bool
	}{
		{name: "audio default quality", command: "audio", args: []string{"song.mp4"}, kind: mediatypes.AudioExtract, quality: mediatypes.QualityMedium},
		{name: "audio high", command: "audio", args: []string{"-q", "high", "song.mp4"}, kind: mediatypes.AudioExtract, quality: mediatypes.QualityHigh},
		{name: "audio bitrate", command: "audio", args: []string{"-q", "320k", "song.mp4"}, kind: mediatypes.AudioExtract, quality: mediatypes.QualityVeryHigh},
		{name: "audio bad quality", command: "audio", args: []string{"-q", "999", "song.mp4"}, wantErr: true},
		{name: "video", command: "video", args: []string{"-o", "/tmp/x", "clip.mov"}, kind: mediatypes.VideoTranscode, out: "/tmp/x"},
		{name: "video rejects watermark", command: "video", args: []string{"-w", "logo.png", "clip.mov"}, wantErr: true},
		{name: "hls", command: "hls", args: []string{"https://cdn.example.com/live.m3u8"}, kind: mediatypes.HLSToContainer},
		{name: "watermark", command: "watermark", args: []string{"-w", "logo.png", "clip.mp4"}, kind: mediatypes.WatermarkOverlay, wm: "logo.png"},
		{name: "watermark needs image", command: "watermark", args: []string{"clip.mp4"}, wantErr: true},
		{name: "chain", command: "chain", args: []string{"-w", "logo.png", "clip.mov"}, kind: mediatypes.VideoTranscode, wm: "logo.png"},
		{name: "two sources", command: "video", args: []string{"a.mov", "b.mov"}, wantErr: true},
		{name: "unknown flag", command: "video", args: []string{"-z", "a.mov"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseJobArgs(tt.command, tt.args, io.Discard)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseJobArgs() = %+v, want error", opts)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseJobArgs() error = %v", err)
			}
			req := opts.request
			if req.Kind != tt.kind || req.Quality != tt.quality || string(req.Watermark) != tt.wm || opts.outputDir != tt.out {
				t.Errorf("parseJobArgs() = %+v, dir %q", req, opts.outputDir)
			}
			if req.Source != mediatypes.SourceRef(tt.args[len(tt.args)-1]) {
				t.Errorf("Source = %q", req.Source)
			}
		})
	}
}

func TestRunJobSucceeds(t *testing.T) {
	eng := &autoEngine{}
	env, stdout, stderr := testEnv(t, eng, nil)
	opts, err := parseJobArgs("video", []string{"/media/My Clip.mov"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	if code := runJob(context.Background(), opts, env); code != exitOK {
		t.Fatalf("runJob() = %d, want %d; stderr %q", code, exitOK, stderr.String())
	}
	want := filepath.Join(env.config.OutputDir, "MyClip.mp4")
	if !strings.Contains(stdout.String(), "Done: "+want) {
		t.Errorf("stdout = %q, want Done line for %s", stdout.String(), want)
	}
	if !strings.Contains(stderr.String(), want) {
		t.Errorf("stderr = %q, want submission line", stderr.String())
	}
}

func TestRunJobChainRecordsHistory(t *testing.T) {
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), database.FileName))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	eng := &autoEngine{}
	env, _, _ := testEnv(t, eng, db)
	opts, err := parseJobArgs("chain", []string{"-w", "https://cdn.example.com/logo.png", "/media/clip.mov"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	if code := runJob(context.Background(), opts, env); code != exitOK {
		t.Fatalf("runJob() = %d, want %d", code, exitOK)
	}
	if n := eng.started(); n != 2 {
		t.Errorf("engine executions = %d, want 2", n)
	}

	list, err := db.ListJobs(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 || list.Items[0].State != "succeeded" || list.Items[0].Stages != 2 {
		t.Errorf("history = %+v, want one succeeded two-stage job", list.Items)
	}
}

func TestRunJobFailure(t *testing.T) {
	env, stdout, _ := testEnv(t, &autoEngine{status: 1}, nil)
	opts, _ := parseJobArgs("audio", []string{"/media/song.mp4"}, io.Discard)

	if code := runJob(context.Background(), opts, env); code != exitFailure {
		t.Fatalf("runJob() = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(stdout.String(), "Failed: ") || !strings.Contains(stdout.String(), "status 1") {
		t.Errorf("stdout = %q, want failure with status", stdout.String())
	}
}

func TestRunJobCancelledByContext(t *testing.T) {
	eng := &autoEngine{hold: true}
	env, stdout, _ := testEnv(t, eng, nil)
	opts, _ := parseJobArgs("hls", []string{"https://cdn.example.com/live.m3u8"}, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for eng.started() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	if code := runJob(ctx, opts, env); code != exitCancelled {
		t.Fatalf("runJob() = %d, want %d", code, exitCancelled)
	}
	if !strings.Contains(stdout.String(), "Cancelled") {
		t.Errorf("stdout = %q, want Cancelled", stdout.String())
	}
}

func TestRunJobRejectsInvalidRequest(t *testing.T) {
	env, _, stderr := testEnv(t, &autoEngine{}, nil)
	opts, _ := parseJobArgs("watermark", []string{"-w", "logo.png", "/media/song.mp3"}, io.Discard)
	opts.request.Kind = mediatypes.AudioExtract

	if code := runJob(context.Background(), opts, env); code != exitUsage {
		t.Fatalf("runJob() = %d, want %d; stderr %q", code, exitUsage, stderr.String())
	}
}

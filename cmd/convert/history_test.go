package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-converter/internal/database"
	"media-converter/internal/mediatypes"
	"media-converter/internal/orchestrator"
	"media-converter/internal/startup"
)

func TestPrintHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, &database.JobList{})
	if buf.String() != "No jobs recorded\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunHistory(t *testing.T) {
	dir := t.TempDir()
	config := &startup.Config{DatabasePath: filepath.Join(dir, database.FileName)}

	ctx := context.Background()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	job := orchestrator.Job{
		ID:          "job-1",
		Kind:        mediatypes.AudioExtract,
		Source:      "/media/song.mp4",
		Quality:     128,
		OutputPath:  "/out/song.mp3",
		State:       orchestrator.StateProbing,
		Stages:      1,
		SubmittedAt: time.Now(),
	}
	if err := db.RecordSubmitted(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.State = orchestrator.StateFailed
	job.Reason = orchestrator.ReasonEngineExecutionFailed
	job.StatusCode = 1
	job.FinishedAt = time.Now()
	if err := db.RecordFinished(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if code := runHistory(ctx, config, []string{"-limit", "5"}, &stdout, io.Discard); code != exitOK {
		t.Fatalf("runHistory() = %d, want %d", code, exitOK)
	}
	out := stdout.String()
	for _, want := range []string{"SUBMITTED", "/out/song.mp3", "failed", "engine_execution_failed (status 1)", "1 of 1 jobs"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunHistoryErrors(t *testing.T) {
	config := &startup.Config{DatabasePath: filepath.Join(t.TempDir(), "missing", "dir", database.FileName)}
	if code := runHistory(context.Background(), config, []string{"-limit", "0"}, io.Discard, io.Discard); code != exitUsage {
		t.Errorf("runHistory(-limit 0) = %d, want %d", code, exitUsage)
	}
	if code := runHistory(context.Background(), config, nil, io.Discard, io.Discard); code != exitFailure {
		t.Errorf("runHistory(missing db dir) = %d, want %d", code, exitFailure)
	}
}

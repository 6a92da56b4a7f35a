package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"media-converter/internal/mediatypes"
	"media-converter/internal/orchestrator"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func testJob(id string, submitted time.Time) orchestrator.Job {
	return orchestrator.Job{
		ID:          id,
		Kind:        mediatypes.VideoTranscode,
		Source:      "/in/My Clip.mov",
		Watermark:   "/in/logo.png",
		OutputPath:  "/out/MyClip.mp4",
		State:       orchestrator.StateProbing,
		Stages:      2,
		SubmittedAt: submitted,
	}
}

func TestRecordQuery(t *testing.T) {
	// Should not panic for either outcome.
	recordQuery("test_operation", time.Now(), nil)
	recordQuery("test_operation", time.Now(), errors.New("test error"))
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if filepath.Base(db.Path()) != FileName {
		t.Errorf("Path() = %q", db.Path())
	}

	// Reopening an existing database must not fail schema creation.
	again, err := New(context.Background(), db.Path())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	_ = again.Close()
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	if _, err := New(context.Background(), filepath.Join(t.TempDir(), "missing", FileName)); err == nil {
		t.Error("New() in a missing directory should fail")
	}
}

func TestRecordAndGetJob(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	submitted := time.Now().Truncate(time.Millisecond)

	job := testJob("job-1", submitted)
	if err := db.RecordSubmitted(ctx, job); err != nil {
		t.Fatalf("RecordSubmitted() error = %v", err)
	}

	rec, err := db.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if rec.State != "probing" || rec.Kind != "video" || rec.Stages != 2 || rec.Watermark != "/in/logo.png" {
		t.Errorf("GetJob() = %+v", rec)
	}
	if !rec.SubmittedAt.Equal(submitted) {
		t.Errorf("SubmittedAt = %v, want %v", rec.SubmittedAt, submitted)
	}
	if rec.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil for an unfinished job", rec.FinishedAt)
	}

	job.State = orchestrator.StateFailed
	job.StatusCode = 1
	job.Reason = orchestrator.ReasonEngineExecutionFailed
	job.Error = "engine_execution_failed: status 1"
	job.Duration = 12.5
	job.FinishedAt = submitted.Add(time.Minute)
	if err := db.RecordFinished(ctx, job); err != nil {
		t.Fatalf("RecordFinished() error = %v", err)
	}

	rec, err = db.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if rec.State != "failed" || rec.StatusCode != 1 || rec.Reason != "engine_execution_failed" || rec.Duration != 12.5 {
		t.Errorf("finished record = %+v", rec)
	}
	if rec.FinishedAt == nil || !rec.FinishedAt.Equal(job.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", rec.FinishedAt, job.FinishedAt)
	}

	if last, err := db.LastOutput(ctx); err != nil || last != "" {
		t.Errorf("LastOutput() = %q, %v; a failed job must not become the last output", last, err)
	}
}

func TestGetJobNotFound(t *testing.T) {
	db := setupTestDB(t)
	if _, err := db.GetJob(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob() error = %v, want ErrJobNotFound", err)
	}
}

func TestRecordFinishedUnknownJob(t *testing.T) {
	db := setupTestDB(t)
	job := testJob("ghost", time.Now())
	job.State = orchestrator.StateSucceeded
	if err := db.RecordFinished(context.Background(), job); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("RecordFinished() error = %v, want ErrJobNotFound", err)
	}
}

func TestRecordFinishedSetsLastOutput(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	job := testJob("job-1", time.Now())
	if err := db.RecordSubmitted(ctx, job); err != nil {
		t.Fatal(err)
	}
	job.State = orchestrator.StateSucceeded
	if err := db.RecordFinished(ctx, job); err != nil {
		t.Fatalf("RecordFinished() error = %v", err)
	}

	last, err := db.LastOutput(ctx)
	if err != nil {
		t.Fatalf("LastOutput() error = %v", err)
	}
	if last != "/out/MyClip.mp4" {
		t.Errorf("LastOutput() = %q, want /out/MyClip.mp4", last)
	}
}

func TestHasSucceeded(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	failed := testJob("job-1", time.Now())
	if err := db.RecordSubmitted(ctx, failed); err != nil {
		t.Fatal(err)
	}
	failed.State = orchestrator.StateFailed
	if err := db.RecordFinished(ctx, failed); err != nil {
		t.Fatal(err)
	}
	if ok, err := db.HasSucceeded(ctx, failed.Source); err != nil || ok {
		t.Errorf("HasSucceeded() after failure = %v, %v; want false", ok, err)
	}

	done := testJob("job-2", time.Now())
	if err := db.RecordSubmitted(ctx, done); err != nil {
		t.Fatal(err)
	}
	done.State = orchestrator.StateSucceeded
	if err := db.RecordFinished(ctx, done); err != nil {
		t.Fatal(err)
	}
	if ok, err := db.HasSucceeded(ctx, done.Source); err != nil || !ok {
		t.Errorf("HasSucceeded() = %v, %v; want true", ok, err)
	}
	if ok, _ := db.HasSucceeded(ctx, "/in/other.mov"); ok {
		t.Error("HasSucceeded() true for an unknown source")
	}
}

func TestListJobs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"a", "b", "c"} {
		if err := db.RecordSubmitted(ctx, testJob(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.ListJobs(ctx, 2)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if list.TotalItems != 3 || list.Limit != 2 || len(list.Items) != 2 {
		t.Fatalf("ListJobs() = %+v", list)
	}
	if list.Items[0].ID != "c" || list.Items[1].ID != "b" {
		t.Errorf("order = %s, %s; want newest first", list.Items[0].ID, list.Items[1].ID)
	}

	all, err := db.ListJobs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if all.Limit != DefaultListLimit || len(all.Items) != 3 {
		t.Errorf("ListJobs(0) = %+v", all)
	}

	capped, err := db.ListJobs(ctx, MaxListLimit+1)
	if err != nil {
		t.Fatal(err)
	}
	if capped.Limit != MaxListLimit {
		t.Errorf("Limit = %d, want %d", capped.Limit, MaxListLimit)
	}
}

func TestListJobsEmpty(t *testing.T) {
	db := setupTestDB(t)
	list, err := db.ListJobs(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if list.Items == nil || len(list.Items) != 0 || list.TotalItems != 0 {
		t.Errorf("ListJobs() = %+v, want empty non-nil items", list)
	}
}

func TestMarkInterruptedAndStats(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	states := map[string]orchestrator.State{
		"probing":   orchestrator.StateProbing,
		"running":   orchestrator.StateRunning,
		"done":      orchestrator.StateSucceeded,
		"cancelled": orchestrator.StateCancelled,
	}
	for id, state := range states {
		job := testJob(id, time.Now())
		if err := db.RecordSubmitted(ctx, job); err != nil {
			t.Fatal(err)
		}
		if state.Terminal() {
			job.State = state
			if err := db.RecordFinished(ctx, job); err != nil {
				t.Fatal(err)
			}
		} else {
			job.State = state
			if _, err := db.db.ExecContext(ctx, "UPDATE jobs SET state = ? WHERE id = ?", string(state), id); err != nil {
				t.Fatal(err)
			}
		}
	}

	stats := db.GetStats()
	if stats.TotalJobs != 4 || stats.Running != 2 || stats.Succeeded != 1 || stats.Cancelled != 1 {
		t.Errorf("GetStats() before = %+v", stats)
	}

	n, err := db.MarkInterrupted(ctx)
	if err != nil {
		t.Fatalf("MarkInterrupted() error = %v", err)
	}
	if n != 2 {
		t.Errorf("MarkInterrupted() = %d, want 2", n)
	}

	rec, err := db.GetJob(ctx, "running")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != "failed" || rec.Reason != ReasonInterrupted || rec.FinishedAt == nil {
		t.Errorf("interrupted record = %+v", rec)
	}

	stats = db.GetStats()
	if stats.Running != 0 || stats.Failed != 2 {
		t.Errorf("GetStats() after = %+v", stats)
	}
}

func TestMetadata(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetMetadata(ctx, "missing"); err == nil {
		t.Error("GetMetadata() for a missing key should fail")
	}
	if err := db.SetMetadata(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v, err := db.GetMetadata(ctx, "k"); err != nil || v != "v2" {
		t.Errorf("GetMetadata() = %q, %v; want v2", v, err)
	}
}

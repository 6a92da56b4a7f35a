package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-converter/internal/database"
	"media-converter/internal/engine"
	"media-converter/internal/events"
	"media-converter/internal/handlers"
	"media-converter/internal/memory"
	"media-converter/internal/metrics"
	"media-converter/internal/middleware"
	"media-converter/internal/orchestrator"
	"media-converter/internal/output"
	"media-converter/internal/startup"
)

type idleEngine struct{ n int }

func (e *idleEngine) Execute([]string, engine.Callbacks) (string, error) {
	e.n++
	return fmt.Sprintf("exec-%d", e.n), nil
}
func (e *idleEngine) Cancel(string)         {}
func (e *idleEngine) CheckAvailable() error { return nil }

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(dir, database.FileName))
	if err != nil {
		t.Fatal(err)
	}
	eng := &idleEngine{}
	orch, err := orchestrator.New(orchestrator.Config{
		Engine:   eng,
		Resolver: output.NewResolver(filepath.Join(dir, "out"), filepath.Join(dir, "work")),
		Journal:  db,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		orch.Close()
		_ = db.Close()
	})

	h := handlers.New(orch, events.NewBus(10), db, eng)
	return setupRouter(h, &startup.Config{LogHealthChecks: false})
}

func TestHTTPRouteStructure(t *testing.T) {
	routes, err := startup.GetRoutes(newTestRouter(t))
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}

	got := make(map[string]bool)
	for _, r := range routes {
		got[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /health", "GET /healthz", "GET /livez", "HEAD /livez", "GET /readyz", "GET /version",
		"POST /api/jobs", "GET /api/jobs", "GET /api/jobs/current", "DELETE /api/jobs/current",
		"GET /api/jobs/{id}", "DELETE /api/jobs/{id}", "GET /api/jobs/{id}/output", "GET /api/events",
		"GET /api/inbox",
	} {
		if !got[want] {
			t.Errorf("route %q not registered", want)
		}
	}
}

func TestRouterDispatch(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/livez", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/api/jobs/current", "", http.StatusOK},
		{http.MethodDelete, "/api/jobs/current", "", http.StatusConflict},
		{http.MethodGet, "/api/jobs/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/jobs/missing/output", "", http.StatusNotFound},
		{http.MethodGet, "/api/events?since=0", "", http.StatusOK},
		{http.MethodGet, "/api/inbox", "", http.StatusOK},
		{http.MethodPost, "/api/jobs", `{"kind":"video","source":"/in/a.mov"}`, http.StatusAccepted},
		{http.MethodPost, "/api/jobs", `{"kind":"video","source":"/in/b.mov"}`, http.StatusConflict},
		{http.MethodPut, "/api/jobs", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" && w.Code != http.StatusMethodNotAllowed {
				t.Error("response has no request id")
			}
		})
	}
}

func TestServerTimeouts(t *testing.T) {
	srv := newServer(":0", http.NotFoundHandler())
	if srv.ReadTimeout <= 0 || srv.ReadHeaderTimeout <= 0 || srv.IdleTimeout <= 0 {
		t.Errorf("server timeouts must be positive: %+v", srv)
	}
	if srv.WriteTimeout < srv.ReadTimeout {
		t.Errorf("WriteTimeout %v shorter than ReadTimeout %v", srv.WriteTimeout, srv.ReadTimeout)
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer(":0")
	if srv.ReadTimeout != 10*time.Second || srv.WriteTimeout != 10*time.Second {
		t.Errorf("metrics server timeouts = %v/%v", srv.ReadTimeout, srv.WriteTimeout)
	}

	metrics.InitializeMetrics()
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "media_converter_jobs_submitted_total") {
		t.Errorf("GET /metrics = %d, missing job metrics", w.Code)
	}
}

func TestShutdown(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(context.Background(), filepath.Join(dir, database.FileName))
	if err != nil {
		t.Fatal(err)
	}
	orch, err := orchestrator.New(orchestrator.Config{
		Engine:   &idleEngine{},
		Resolver: output.NewResolver(dir, dir),
		Journal:  db,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := orch.Submit(context.Background(), orchestrator.Request{Kind: "video", Source: "/in/a.mov"}, nil); err != nil {
		t.Fatal(err)
	}

	collector := metrics.NewCollector(db, time.Hour)
	collector.Start()

	inboxStopped := false
	shutdown(shutdownDeps{
		srv:       newServer(":0", http.NotFoundHandler()),
		collector: collector,
		memory:    memory.NewMonitor(memory.Config{LimitBytes: 1 << 30}),
		stopInbox: func() {
			if orch.State() == orchestrator.StateCancelled {
				t.Error("inbox stopped after the orchestrator")
			}
			inboxStopped = true
		},
		orch: orch,
		ffmpeg:    engine.NewFFmpeg("ffmpeg"),
		db:        db,
	})

	if !inboxStopped {
		t.Error("inbox watcher not stopped")
	}
	if orch.State() != orchestrator.StateCancelled {
		t.Errorf("state after shutdown = %s, want cancelled", orch.State())
	}
	if err := db.Ping(context.Background()); err == nil {
		t.Error("database still open after shutdown")
	}
}

func TestRunInbox(t *testing.T) {
	root := t.TempDir()
	config := &startup.Config{
		WatchDir:    filepath.Join(root, "watch"),
		WatchKind:   "audio",
		WatchSettle: time.Hour,
		OutputDir:   filepath.Join(root, "watch", "out"),
		WorkDir:     filepath.Join(root, "work"),
		DatabaseDir: filepath.Join(root, "db"),
	}
	watcher, err := newInbox(config, nil, nil, nil)
	if err != nil {
		t.Fatalf("newInbox() error = %v", err)
	}
	if _, err := os.Stat(config.WatchDir); err != nil {
		t.Fatalf("watch directory not created: %v", err)
	}
	if st := watcher.Status(); st.Dir != config.WatchDir || st.Kind != "audio" {
		t.Errorf("Status() = %+v", st)
	}

	stop := runInbox(context.Background(), watcher)
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return")
	}
}

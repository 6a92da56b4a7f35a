package startup

import (
	"testing"
	"time"
)

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"Returns default when env var not set", "", true, true},
		{"Returns default false when env var not set", "", false, false},
		{"Returns true when env var is 'true'", "true", false, true},
		{"Returns false when env var is 'false'", "false", true, false},
		{"Returns true when env var is '1'", "1", false, true},
		{"Returns false when env var is '0'", "0", true, false},
		{"Returns true when env var is 'T'", "T", false, true},
		{"Returns default for invalid value", "yes please", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		envValue string
		want     int
	}{
		{"", 42},
		{"7", 7},
		{"0", 0},
		{"-1", 42},
		{"wide", 42},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)
			if got := getEnvInt("TEST_INT", 42); got != tt.want {
				t.Errorf("getEnvInt(%q) = %d, want %d", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{"", 15 * time.Second},
		{"500ms", 500 * time.Millisecond},
		{"2m", 2 * time.Minute},
		{"0s", 15 * time.Second},
		{"-3s", 15 * time.Second},
		{"soon", 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			if got := getEnvDuration("TEST_DURATION", 15*time.Second); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestThreadsString(t *testing.T) {
	if got := threadsString(0); got != "auto" {
		t.Errorf("threadsString(0) = %q, want auto", got)
	}
	if got := threadsString(4); got != "4" {
		t.Errorf("threadsString(4) = %q, want 4", got)
	}
}

func TestLogHelpers(_ *testing.T) {
	// Should not panic.
	LogDatabaseInit(time.Millisecond, 0)
	LogDatabaseInit(time.Millisecond, 2)
	LogEngineInit("definitely-not-ffmpeg", "definitely-not-ffprobe")
	LogServerStarted(ServerConfig{Port: "8080", MetricsPort: "9090", MetricsEnabled: true})
	LogServerStarted(ServerConfig{Port: "8080"})
	LogShutdownInitiated("SIGTERM")
	LogShutdownStep("Closing database")
	LogShutdownStepComplete("Database closed")
	LogShutdownComplete()
}

func BenchmarkGetEnv(b *testing.B) {
	b.Setenv("BENCH_VAR", "value")
	for i := 0; i < b.N; i++ {
		getEnv("BENCH_VAR", "default")
	}
}

func BenchmarkGetEnvBool(b *testing.B) {
	b.Setenv("BENCH_BOOL", "true")
	for i := 0; i < b.N; i++ {
		getEnvBool("BENCH_BOOL", false)
	}
}

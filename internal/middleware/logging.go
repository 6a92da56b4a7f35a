package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"media-converter/internal/logging"
)

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
	// LogEventPolls logs GET /api/events, which clients poll continuously.
	LogEventPolls bool
}

// DefaultLoggingConfig logs everything except event polls.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{LogHealthChecks: true}
}

const eventsPath = "/api/events"

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

func (c LoggingConfig) skips(path string) bool {
	switch {
	case path == eventsPath:
		return !c.LogEventPolls
	case healthCheckPaths[path]:
		return !c.LogHealthChecks
	}
	for _, prefix := range c.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Logger writes one access line per request in W3C Extended Log Format:
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(X-Request-ID) cs(User-Agent)
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.skips(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			//nolint:gosec // G706: every user-controlled field is passed through sanitizeLogField.
			logging.Printf("%s", formatLogLine(r, rec, time.Since(start), time.Now().UTC()))
		})
	}
}

func formatLogLine(r *http.Request, rec *statusRecorder, took time.Duration, now time.Time) string {
	fields := []string{
		now.Format(time.DateOnly),
		now.Format(time.TimeOnly),
		clientIP(r),
		r.Method,
		r.URL.Path,
		r.URL.RawQuery,
	}
	for i, f := range fields {
		fields[i] = orDash(sanitizeLogField(f))
	}
	return fmt.Sprintf("%s %d %d %d %s %s",
		strings.Join(fields, " "),
		rec.status,
		rec.bytes,
		took.Milliseconds(),
		orDash(sanitizeLogField(rec.Header().Get(RequestIDHeader))),
		orDash(quoteField(sanitizeLogField(r.Header.Get("User-Agent")))),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// sanitizeLogField turns line breaks into spaces and drops other control
// characters except tab.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20, r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// clientIP prefers the first proxy-reported address over the peer address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// quoteField wraps values containing spaces, tabs or quotes in double
// quotes, doubling embedded quotes.
func quoteField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

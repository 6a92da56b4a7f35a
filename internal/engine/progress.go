package engine

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"media-converter/internal/logging"
)

// progressParser accumulates the key=value lines written by
// "-progress pipe:1". A batch ends with a progress=continue|end line.
type progressParser struct {
	current Statistics
	seen    bool
}

// feed consumes one line and returns a sample when a batch completes.
func (p *progressParser) feed(line string) (Statistics, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Statistics{}, false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		// ffmpeg writes microseconds under both keys.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.current.Time = time.Duration(us) * time.Microsecond
			p.seen = true
		}
	case "out_time":
		if d, ok := parseOutTime(value); ok && !p.seen {
			p.current.Time = d
			p.seen = true
		}
	case "frame":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.current.Frame = v
		}
	case "fps":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			p.current.FPS = v
		}
	case "bitrate":
		p.current.Bitrate = value
	case "total_size":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.current.Size = v
		}
	case "speed":
		p.current.Speed = value
	case "progress":
		stats, emit := p.current, p.seen
		p.current = Statistics{Time: stats.Time}
		p.seen = false
		return stats, emit
	}
	return Statistics{}, false
}

// parseOutTime parses ffmpeg's "HH:MM:SS.micro" out_time value.
func parseOutTime(s string) (time.Duration, bool) {
	if s == "" || s == "N/A" {
		return 0, false
	}
	negative := strings.HasPrefix(s, "-")
	parts := strings.Split(strings.TrimPrefix(s, "-"), ":")
	if len(parts) != 3 || negative {
		return 0, false
	}

	hours, err1 := strconv.ParseInt(parts[0], 10, 64)
	mins, err2 := strconv.ParseInt(parts[1], 10, 64)
	secs, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs*float64(time.Second))
	return d, true
}

// maxLineSize bounds a single stdout or stderr line.
const maxLineSize = 1024 * 1024

// readProgress parses r until EOF, calling emit for every completed batch.
func readProgress(r io.Reader, emit func(Statistics)) {
	var p progressParser
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if stats, ok := p.feed(scanner.Text()); ok {
			emit(stats)
		}
	}
	drain("progress", r, scanner.Err())
}

// classifyLine maps an ffmpeg "-loglevel level+..." tagged stderr line to a
// log level.
func classifyLine(line string) logging.LogLevel {
	switch {
	case strings.Contains(line, "[error]"), strings.Contains(line, "[fatal]"), strings.Contains(line, "[panic]"):
		return logging.LevelError
	case strings.Contains(line, "[warning]"):
		return logging.LevelWarn
	case strings.Contains(line, "[debug]"), strings.Contains(line, "[verbose]"), strings.Contains(line, "[trace]"):
		return logging.LevelDebug
	default:
		return logging.LevelInfo
	}
}

// readLog relays non-empty lines of r until EOF.
func readLog(r io.Reader, emit func(logging.LogLevel, string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		emit(classifyLine(line), line)
	}
	drain("log", r, scanner.Err())
}

// drain discards whatever a stopped scanner left unread so the process
// never blocks on a full pipe.
func drain(stream string, r io.Reader, err error) {
	if err == nil {
		return
	}
	logging.Warn("Engine %s stream stopped parsing: %v", stream, err)
	if _, err := io.Copy(io.Discard, r); err != nil {
		logging.Debug("Engine %s stream drain ended: %v", stream, err)
	}
}

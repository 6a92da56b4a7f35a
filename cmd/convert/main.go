package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"media-converter/internal/database"
	"media-converter/internal/engine"
	"media-converter/internal/logging"
	"media-converter/internal/playlist"
	"media-converter/internal/probe"
	"media-converter/internal/startup"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitUsage     = 2
	exitCancelled = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitUsage
	}

	if os.Getenv("LOG_LEVEL") == "" && os.Getenv("DEBUG") == "" {
		logging.SetLevel(logging.LevelWarn)
	}
	logging.SetOutput(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config, err := startup.ReadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	command := args[0]
	switch command {
	case "audio", "video", "hls", "watermark", "chain":
		opts, err := parseJobArgs(command, args[1:], stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		if opts.outputDir != "" {
			if err := config.SetOutputDir(opts.outputDir); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitUsage
			}
		}

		ffmpeg := engine.NewFFmpeg(config.FFmpegPath)
		if err := ffmpeg.CheckAvailable(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			fmt.Fprintln(stderr, "Set FFMPEG_PATH if ffmpeg is not on PATH")
			return exitFailure
		}
		defer ffmpeg.Cleanup()

		db := openHistory(ctx, config)
		if db != nil {
			defer closeHistory(db, stderr)
		}

		tty, width := terminalInfo(stdout)
		return runJob(ctx, opts, jobEnv{
			config:    config,
			engine:    ffmpeg,
			inspector: playlist.NewInspector(probe.NewFFprobe(config.FFprobePath)),
			history:   db,
			stdout:    stdout,
			stderr:    stderr,
			tty:       tty,
			width:     width,
		})

	case "history":
		return runHistory(ctx, config, args[1:], stdout, stderr)

	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK

	default:
		sanitized := sanitizeCommand(command)
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitized) //nolint:gosec // G705 - input is sanitized via allowlist in sanitizeCommand
		printUsage(stderr)
		return exitUsage
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Converter")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: convert <command> [flags] <source>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  audio      - Extract audio to MP3 (-q low|medium|high|veryhigh)")
	fmt.Fprintln(w, "  video      - Transcode to H.264 MP4")
	fmt.Fprintln(w, "  hls        - Remux an HLS playlist into one MP4")
	fmt.Fprintln(w, "  watermark  - Overlay a watermark image (-w image)")
	fmt.Fprintln(w, "  chain      - Transcode, then overlay a watermark (-w image)")
	fmt.Fprintln(w, "  history    - Show recent jobs (-limit N)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o dir     - Output directory (default: OUTPUT_DIR)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  OUTPUT_DIR   - Output directory (default: %s)\n", startup.DefaultOutputDir)
	fmt.Fprintf(w, "  DATABASE_DIR - Job history directory (default: %s)\n", startup.DefaultDatabaseDir)
	fmt.Fprintln(w, "  FFMPEG_PATH, FFPROBE_PATH, PROBE_TIMEOUT, WATERMARK_MAX_WIDTH, ENGINE_THREADS")
}

// openHistory opens the job history database. History is optional for job
// commands, so failures only disable it.
func openHistory(ctx context.Context, config *startup.Config) *database.Database {
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		logging.Info("Job history disabled: %v", err)
		return nil
	}
	return db
}

func closeHistory(db *database.Database, stderr io.Writer) {
	if err := db.Close(); err != nil {
		fmt.Fprintf(stderr, "Warning: failed to close database: %v\n", err)
	}
}

// terminalInfo reports whether w is a terminal and its width in columns.
func terminalInfo(w io.Writer) (bool, int) {
	f, ok := w.(*os.File)
	if !ok {
		return false, 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return false, 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		width = defaultWidth
	}
	return true, width
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"media-converter/internal/command"
	"media-converter/internal/database"
	"media-converter/internal/engine"
	"media-converter/internal/filesystem"
	"media-converter/internal/mediatypes"
	"media-converter/internal/orchestrator"
	"media-converter/internal/output"
	"media-converter/internal/probe"
	"media-converter/internal/startup"
	"media-converter/internal/watermark"
)

// jobOptions is a parsed job subcommand.
type jobOptions struct {
	request   orchestrator.Request
	outputDir string
}

// jobEnv carries the collaborators a job run needs. history may be nil.
type jobEnv struct {
	config    *startup.Config
	engine    engine.Engine
	inspector probe.Inspector
	history   *database.Database
	stdout    io.Writer
	stderr    io.Writer
	tty       bool
	width     int
}

// parseJobArgs parses the flags and source of a job subcommand.
func parseJobArgs(name string, args []string, stderr io.Writer) (jobOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	quality := fs.String("q", "medium", "audio quality: low, medium, high, veryhigh or a bitrate")
	wm := fs.String("w", "", "watermark image")
	outDir := fs.String("o", "", "output directory")
	if err := fs.Parse(args); err != nil {
		return jobOptions{}, err
	}
	if fs.NArg() != 1 {
		return jobOptions{}, fmt.Errorf("%s needs exactly one source", name)
	}

	req := orchestrator.Request{Source: mediatypes.SourceRef(fs.Arg(0))}
	switch name {
	case "audio":
		q, err := mediatypes.ParseAudioQuality(*quality)
		if err != nil {
			return jobOptions{}, err
		}
		req.Kind = mediatypes.AudioExtract
		req.Quality = q
	case "video":
		req.Kind = mediatypes.VideoTranscode
	case "hls":
		req.Kind = mediatypes.HLSToContainer
	case "watermark":
		req.Kind = mediatypes.WatermarkOverlay
	case "chain":
		req.Kind = mediatypes.VideoTranscode
	default:
		return jobOptions{}, fmt.Errorf("unknown job command %q", name)
	}

	if name == "watermark" || name == "chain" {
		if *wm == "" {
			return jobOptions{}, fmt.Errorf("%s needs a watermark image (-w)", name)
		}
		req.Watermark = mediatypes.SourceRef(*wm)
	} else if *wm != "" {
		return jobOptions{}, fmt.Errorf("-w is only valid for watermark and chain")
	}

	return jobOptions{request: req, outputDir: *outDir}, nil
}

// runJob submits one job, renders its progress and blocks until it ends.
// Cancelling ctx cancels the job.
func runJob(ctx context.Context, opts jobOptions, env jobEnv) int {
	cfg := env.config
	retry := filesystem.DefaultRetryConfig()
	for _, dir := range []string{cfg.OutputDir, cfg.WorkDir} {
		if err := filesystem.MkdirAllWithRetry(dir, 0o755, retry); err != nil {
			fmt.Fprintf(env.stderr, "Error: cannot create %s: %v\n", dir, err)
			return exitFailure
		}
	}

	orchCfg := orchestrator.Config{
		Engine:    env.engine,
		Prober:    probe.NewProber(env.inspector, cfg.ProbeTimeout),
		Resolver:  output.NewResolver(cfg.OutputDir, cfg.WorkDir),
		Builder:   command.NewBuilder(cfg.EngineThreads),
		Watermark: watermark.NewPreparer(cfg.WorkDir, cfg.WatermarkMaxWidth),
	}
	if env.history != nil {
		orchCfg.Journal = env.history
	}
	orch, err := orchestrator.New(orchCfg)
	if err != nil {
		fmt.Fprintf(env.stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer orch.Close()

	printer := newProgressPrinter(env.stdout, env.tty, env.width)
	handle, err := orch.Submit(ctx, opts.request, printer)
	if err != nil {
		fmt.Fprintf(env.stderr, "Error: %v\n", err)
		if errors.Is(err, orchestrator.ErrJobAlreadyInProgress) || errors.Is(err, orchestrator.ErrClosed) {
			return exitFailure
		}
		return exitUsage
	}
	fmt.Fprintf(env.stderr, "%s %s -> %s\n", handle.Kind, opts.request.Source, handle.OutputPath)

	select {
	case <-printer.Done():
	case <-ctx.Done():
		orch.Cancel(handle)
		<-printer.Done()
	}
	return printer.ExitCode()
}

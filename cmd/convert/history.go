package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"media-converter/internal/database"
	"media-converter/internal/startup"
)

const defaultHistoryLimit = 20

func runHistory(ctx context.Context, config *startup.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", defaultHistoryLimit, "number of jobs to show")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *limit <= 0 {
		fmt.Fprintln(stderr, "Error: -limit must be positive")
		return exitUsage
	}

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open database: %v\n", err)
		return exitFailure
	}
	defer closeHistory(db, stderr)

	list, err := db.ListJobs(ctx, *limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	printHistory(stdout, list)
	return exitOK
}

func printHistory(w io.Writer, list *database.JobList) {
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "No jobs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBMITTED\tKIND\tSTATE\tOUTPUT\tDETAIL")
	for _, job := range list.Items {
		detail := job.Reason
		if job.Error != "" {
			detail = job.Error
		} else if job.StatusCode != 0 {
			detail = fmt.Sprintf("%s (status %d)", job.Reason, job.StatusCode)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			job.SubmittedAt.Local().Format(time.DateTime), job.Kind, job.State, job.OutputPath, orDash(detail))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d jobs\n", len(list.Items), list.TotalItems)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package database

import "time"

// JobRecord is one row of job history.
type JobRecord struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Source      string     `json:"source"`
	Watermark   string     `json:"watermark,omitempty"`
	Quality     int        `json:"quality,omitempty"`
	OutputPath  string     `json:"outputPath"`
	State       string     `json:"state"`
	Stages      int        `json:"stages"`
	Duration    float64    `json:"duration,omitempty"`
	StatusCode  int        `json:"statusCode,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// JobList is a page of job history, newest first.
type JobList struct {
	Items      []JobRecord `json:"items"`
	TotalItems int         `json:"totalItems"`
	Limit      int         `json:"limit"`
}

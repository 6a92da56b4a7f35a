// Package handlers provides the HTTP API of the converter service.
//
// It includes handlers for:
//   - Submitting, inspecting and cancelling the current job
//   - The sequenced event feed (GET /api/events?since=N)
//   - Job history backed by SQLite
//   - Downloading a finished job's output (GET /api/jobs/{id}/output)
//   - Watch folder status (GET /api/inbox)
//   - Health, liveness, readiness and version
package handlers

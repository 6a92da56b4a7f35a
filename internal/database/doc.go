// Package database provides SQLite storage for the converter's job history.
//
// Every submitted job gets a row that is updated with its terminal state,
// status code and failure reason. The output of the most recent successful
// job is kept in the metadata table. Jobs left in flight by a previous run
// are marked failed at startup.
//
// The database uses WAL mode and includes automatic schema initialization.
package database

// Package sqlite implements the scheduling stores of internal/store on an
// embedded SQLite database through the pure-Go modernc driver. Timestamps are
// stored as Unix milliseconds in UTC.
package sqlite

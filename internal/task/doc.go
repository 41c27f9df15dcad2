// Package task runs background jobs on a fixed schedule.
package task

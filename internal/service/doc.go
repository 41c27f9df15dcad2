// Package service runs study sessions for many learners on top of the
// scheduler and policy packages.
//
// StudyService keeps one session per user in memory: a review scheduler and
// the scheduling policy feeding it parameters. A session is loaded from the
// stores the first time a user is touched. Every mutation is written back
// before it is reported as done; if a write fails the session is dropped so
// the next call reloads the persisted truth.
package service

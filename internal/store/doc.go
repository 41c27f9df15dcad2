// Package store defines the persistence contracts of the scheduler.
//
// The scheduler keeps a learner's session in memory and treats storage as a
// sink: card states, statistics and review events are written after every
// graded answer and read back when a session starts. The interfaces here are
// implemented for PostgreSQL and SQLite under internal/platform.
//
// Every store is scoped by user ID so that state is keyed by (user, card).
// WithTx returns a store bound to a transaction so that one answer's writes
// commit together.
package store

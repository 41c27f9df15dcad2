// Package scheduler implements the review scheduler: it owns the memory state
// of every card a learner has graded together with the learner's aggregate
// study statistics, applies the SRS algorithm to each graded answer, and
// selects the cards that are due.
//
// A Scheduler serves one learner. All of its operations are serialized by an
// internal mutex, which preserves the read-modify-write sequence on a card's
// repetitions, ease factor and interval when grades arrive concurrently.
// Multi-user callers keep one Scheduler per user.
//
// The scheduler never fails on unknown cards; a card without state is new and
// due. Persistence is the caller's concern: every mutating operation returns
// what changed so it can be written to a store, and Restore reloads a
// persisted session.
package scheduler

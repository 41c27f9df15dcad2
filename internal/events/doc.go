// Package events carries notifications about scheduling activity between
// components without coupling them.
//
// The study service emits a ReviewRecorded event after each persisted answer
// and a PolicyAdjusted event whenever performance analysis proposes or applies
// a policy change. Handlers register with an EventEmitter and receive every
// event; they decide for themselves which types they care about.
package events

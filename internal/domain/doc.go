// Package domain contains the entities of the scheduling core: per-card memory
// state, aggregate study statistics, grades and review events. It has no
// knowledge of storage or transport.
package domain

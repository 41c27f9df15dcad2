// Package policy holds the tunable side of scheduling: named presets of
// algorithm parameters, sparse per-user overrides layered on top of the active
// preset, validation of the resulting configuration and an adaptive procedure
// that nudges parameters from aggregate performance.
//
// The effective configuration is consumed by the scheduler through Params,
// so changes only affect future reviews; existing card state is never
// rewritten.
package policy

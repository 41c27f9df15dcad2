// Package config loads the server settings from defaults, an optional YAML
// file and SCRY_ environment variables, and validates them before anything
// is wired up.
package config

// Package config loads, normalizes, and validates streamcap configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and centralizes every knob the daemon and CLI
// need: output/log directories, the watchlist file, download concurrency and
// retry policy, per-platform tool settings, transfer broker settings, and
// notification topics.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

// Package daemon coordinates the long-running streamcap process.
//
// It wires configuration, target storage, the watchlist source, and the
// reconciliation controller into a single lifecycle with flock-based locking
// to prevent multiple instances. Individual recording behavior lives in the
// supervisor and platform packages; the daemon focuses on startup, shutdown,
// and high-level wiring.
package daemon

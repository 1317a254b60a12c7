// Package main hosts the streamcap CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into the
// foreground daemon loop, target and status queries against the SQLite
// store, configuration scaffolding, and notification testing. It centralizes
// configuration resolution so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main

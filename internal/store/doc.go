// Package store persists watch targets and downloaded segments in SQLite.
//
// The Store manages database connections, schema initialization, and the
// queries the reconciler and supervisors need: listing activated targets,
// natural-key lookup by URL, identity-preserving upserts, live-status and
// avatar updates, and append-only segment records. Target id and is_live
// survive re-upserts of the same URL so reconciliation never resets runtime
// state.
//
// The database lives in the configured log directory. Schema changes bump the
// version in schema.go; users clear the database to adopt the new schema.
package store

// Package services defines shared error semantics consumed by the supervisor
// loop and the external collaborators (platforms, transfer, dispatch).
//
// Key responsibilities:
//   - Structured error markers that classify collaborator failures into the
//     three-way outcome the supervisor needs: fatal (invalid configuration,
//     unsupported platform), transient (everything retryable), and success.
//   - The Wrap helper that tags failures with a marker plus operation context
//     so log lines and tests can assert on both.
//
// Use these helpers when adding collaborator integrations so failure handling
// stays uniform across the system.
package services

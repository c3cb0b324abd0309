// Package services defines shared utilities consumed by the stage handlers and
// the remote store adapters.
//
// Key responsibilities:
//   - Context helpers that stamp cluster IDs, stage names, and run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, the SchemaError and
//     ClusterError types, and Kind for reporting.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the lifecycle.
package services

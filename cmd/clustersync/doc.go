// Package main hosts the clustersync CLI entrypoint and command graph.
//
// Each lifecycle stage is a subcommand that builds the runtime from
// configuration, dispatches the stage over every discovered cluster, and
// prints a summary. Supporting commands report per-cluster status, manage
// the published catalog, inspect downloads, and scaffold configuration.
//
// Keep this package thin: behavior belongs in the internal packages and is
// surfaced here through flags and rendering only.
package main

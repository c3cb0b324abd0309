// Package workflow advances clusters through the lifecycle stages.
//
// The Synchronizer dispatches one stage at a time. It asks the stage handler
// which clusters to consider, skips those the gate already reports complete,
// and runs the rest on a bounded worker pool. Every dispatch drains all of
// its work before returning the first failure. A cluster is marked complete
// only after its stage body succeeded and, for stages that publish catalog
// rows, after the orchestrator committed those rows through the ledger.
//
// Sync chains Download, Convert and Upload, with Delete optionally last.
// Each stage is fully dispatched before the next one starts; later stages
// discover their clusters from the output of earlier ones.
package workflow

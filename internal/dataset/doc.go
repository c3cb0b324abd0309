// Package dataset describes the on-disk layout of a cell cluster as it moves
// through download, conversion and upload.
//
// Layout resolves every stage directory and artifact path from the configured
// roots, and the Artifact enum fixes the five published files together with
// their input locations, canonical file names and catalog columns. Stage code
// should derive paths here rather than joining strings on its own.
package dataset

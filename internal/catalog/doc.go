// Package catalog owns the tabular records that describe clusters: the cell
// cluster metadata table that drives selection, and the published dataset
// catalog that maps each uploaded cluster to its remote objects.
//
// The published catalog is republished as a whole file on every change. The
// Ledger serializes those read-modify-publish cycles behind a file lock so
// only one writer exists at a time, and spools a table locally when the
// remote store rejects it.
package catalog

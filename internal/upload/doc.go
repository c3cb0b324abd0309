// Package upload implements the upload lifecycle stage. Each converted
// cluster gets a folder under the project folder, its five artifacts are
// stored there, and the resulting ids are returned as a catalog row for the
// synchronizer to commit. A local receipt mirrors that row so the catalog
// can be rebuilt from disk.
package upload

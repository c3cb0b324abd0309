// Package biosamples writes the biosample configuration table consumed by the
// enhancer-gene analysis pipeline, one row per downloaded fragment file.
package biosamples

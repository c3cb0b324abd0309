// Package convert rewrites raw per-cluster analysis outputs into the
// canonical published schema.
//
// Each artifact kind has a fixed set of canonical columns, a rename map and a
// descriptive comment block. Conversion is a pure function of its inputs:
// the same input bytes always produce the same output bytes, including the
// gzip framing of edge files. The Handler wraps the converter as the convert
// lifecycle stage.
package convert

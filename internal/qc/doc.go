// Package qc inspects downloaded fragment files before they are handed to the
// analysis pipeline.
//
// Each primary file is checked for a tabix index next to it and for
// coordinate ordering over its leading records. The checks are advisory: the
// report lists offending files and the caller decides what to do with them.
package qc

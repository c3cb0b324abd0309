package dataset

import (
	"fmt"
	"strings"
)

// Cluster is one cell cluster as described by the metadata table.
type Cluster struct {
	ID           string
	Species      string
	NumFragments int64
	PrimaryRef   string
	IndexRef     string
}

// HasPrimary reports whether the metadata names a primary source object.
func (c Cluster) HasPrimary() bool {
	return strings.TrimSpace(c.PrimaryRef) != ""
}

// HasIndex reports whether the metadata names an index object for the primary.
func (c Cluster) HasIndex() bool {
	return strings.TrimSpace(c.IndexRef) != ""
}

// ValidateID rejects identifiers that cannot be used as a single directory name.
func ValidateID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("cluster id is empty")
	case id != strings.TrimSpace(id):
		return fmt.Errorf("cluster id %q has surrounding whitespace", id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("cluster id %q contains a path separator", id)
	case id == "." || id == "..":
		return fmt.Errorf("cluster id %q is not a valid directory name", id)
	}
	return nil
}

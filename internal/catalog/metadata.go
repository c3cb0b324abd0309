package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"clustersync/internal/dataset"
	"clustersync/internal/services"
)

// Metadata table columns.
const (
	ColumnClusterID    = "CellClusterID"
	ColumnSpecies      = "Species"
	ColumnPrimaryRef   = "ATACtagAlignSorted"
	ColumnIndexRef     = "ATACtagAlignSortedIndex"
	ColumnNumFragments = "NumFragments"
)

// Metadata is the parsed cell cluster table.
type Metadata struct {
	Clusters []dataset.Cluster
	// HasFragments is false when the table carries no fragment count column.
	HasFragments bool
}

// LoadMetadata reads the cluster metadata table at path.
func LoadMetadata(path string) (*Metadata, error) {
	t, err := ReadTableFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInputNotFound, "metadata", "read", path, err)
	}
	return ParseMetadata(t)
}

// ParseMetadata converts a metadata table into clusters. Rows are kept in
// table order; duplicate cluster ids are rejected.
func ParseMetadata(t *Table) (*Metadata, error) {
	if err := t.Require("metadata", ColumnClusterID, ColumnSpecies, ColumnPrimaryRef); err != nil {
		return nil, err
	}
	md := &Metadata{HasFragments: t.HasColumn(ColumnNumFragments)}
	seen := make(map[string]struct{}, t.Len())
	for i := 0; i < t.Len(); i++ {
		id := strings.TrimSpace(t.Value(i, ColumnClusterID))
		if id == "" {
			continue
		}
		if err := dataset.ValidateID(id); err != nil {
			return nil, &services.SchemaError{Kind: "metadata", Column: ColumnClusterID, Detail: err.Error()}
		}
		if _, dup := seen[id]; dup {
			return nil, &services.SchemaError{Kind: "metadata", Column: ColumnClusterID, Detail: fmt.Sprintf("duplicate cluster %s", id)}
		}
		seen[id] = struct{}{}

		fragments, err := parseCount(t.Value(i, ColumnNumFragments))
		if err != nil {
			return nil, &services.SchemaError{Kind: "metadata", Column: ColumnNumFragments, Detail: fmt.Sprintf("cluster %s: %v", id, err)}
		}
		md.Clusters = append(md.Clusters, dataset.Cluster{
			ID:           id,
			Species:      strings.TrimSpace(t.Value(i, ColumnSpecies)),
			NumFragments: fragments,
			PrimaryRef:   cleanRef(t.Value(i, ColumnPrimaryRef)),
			IndexRef:     cleanRef(t.Value(i, ColumnIndexRef)),
		})
	}
	return md, nil
}

// Lookup returns the cluster with id.
func (m *Metadata) Lookup(id string) (dataset.Cluster, bool) {
	for _, c := range m.Clusters {
		if c.ID == id {
			return c, true
		}
	}
	return dataset.Cluster{}, false
}

// IDs returns every cluster id in table order.
func (m *Metadata) IDs() []string {
	ids := make([]string, 0, len(m.Clusters))
	for _, c := range m.Clusters {
		ids = append(ids, c.ID)
	}
	return ids
}

// cleanRef treats the spreadsheet spellings of a missing value as empty.
func cleanRef(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "na", "nan", "none", "null":
		return ""
	}
	return value
}

// parseCount accepts integers and float spellings such as "1.5e6". Missing
// values count as zero fragments.
func parseCount(value string) (int64, error) {
	value = cleanRef(value)
	if value == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid fragment count %q", value)
	}
	return int64(f), nil
}

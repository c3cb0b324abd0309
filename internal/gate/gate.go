// Package gate decides whether a cluster has finished a stage.
//
// Completion is recorded by one zero-byte marker file per (cluster, stage) in
// the stage's output directory. Reading a status never mutates the
// filesystem; MarkComplete is the only writer and callers invoke it after the
// stage output is durable.
package gate

import (
	"fmt"
	"os"
	"path/filepath"

	"clustersync/internal/dataset"
	"clustersync/internal/fileutil"
	"clustersync/internal/stage"
)

// Status is the completion state of one cluster for one stage.
type Status int

const (
	NotStarted Status = iota
	Complete
)

func (s Status) String() string {
	if s == Complete {
		return "complete"
	}
	return "not_started"
}

// ArtifactCheck verifies that a stage's outputs are present. A non-nil error
// keeps the stage incomplete even when its marker exists.
type ArtifactCheck func(clusterID string) error

// Gate resolves marker locations from a dataset layout.
type Gate struct {
	layout dataset.Layout
	checks map[stage.Name]ArtifactCheck
}

// New constructs a gate over layout.
func New(layout dataset.Layout) *Gate {
	return &Gate{layout: layout, checks: make(map[stage.Name]ArtifactCheck)}
}

// SetCheck registers an artifact check for a stage. Call before the gate is
// shared between goroutines.
func (g *Gate) SetCheck(name stage.Name, check ArtifactCheck) {
	if check == nil {
		delete(g.checks, name)
		return
	}
	g.checks[name] = check
}

// Dir returns the directory holding the stage marker for a cluster, or ""
// for ungated stages.
func (g *Gate) Dir(clusterID string, name stage.Name) string {
	switch name {
	case stage.Download:
		return g.layout.DownloadDir(clusterID)
	case stage.Convert:
		return g.layout.OutputDir(clusterID)
	case stage.Upload:
		return g.layout.UploadDir(clusterID)
	default:
		return ""
	}
}

// MarkerPath returns the marker file location, or "" for ungated stages.
func (g *Gate) MarkerPath(clusterID string, name stage.Name) string {
	dir := g.Dir(clusterID, name)
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, dataset.CompletedMarker)
}

// Status reports whether the cluster has completed the stage.
func (g *Gate) Status(clusterID string, name stage.Name) Status {
	marker := g.MarkerPath(clusterID, name)
	if marker == "" {
		return NotStarted
	}
	info, err := os.Stat(marker)
	if err != nil || info.IsDir() {
		return NotStarted
	}
	if check, ok := g.checks[name]; ok {
		if err := check(clusterID); err != nil {
			return NotStarted
		}
	}
	return Complete
}

// IsComplete is shorthand for Status(...) == Complete.
func (g *Gate) IsComplete(clusterID string, name stage.Name) bool {
	return g.Status(clusterID, name) == Complete
}

// MarkComplete writes the stage marker. It is a no-op for ungated stages.
func (g *Gate) MarkComplete(clusterID string, name stage.Name) error {
	dir := g.Dir(clusterID, name)
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	if err := fileutil.Touch(filepath.Join(dir, dataset.CompletedMarker)); err != nil {
		return fmt.Errorf("write %s marker for %s: %w", name, clusterID, err)
	}
	return nil
}

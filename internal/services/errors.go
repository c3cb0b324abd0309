package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputNotFound marks a missing local input file.
	ErrInputNotFound = errors.New("input not found")
	// ErrSchema marks input whose columns do not match the expected layout.
	ErrSchema = errors.New("schema error")
	// ErrPartialDownload marks a download directory holding only part of an
	// artifact pair. The directory is wiped and fetched again.
	ErrPartialDownload = errors.New("partial download")
	// ErrRemoteConflict marks a remote object that is already absent. Deletion
	// treats it as success.
	ErrRemoteConflict = errors.New("remote object absent")
	// ErrCatalogWrite marks a catalog republication that did not reach the
	// remote store. The table is spooled locally and retried.
	ErrCatalogWrite = errors.New("catalog write failed")
	ErrRemote        = errors.New("remote store error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SchemaError reports a column that is missing or unparsable for a file kind.
type SchemaError struct {
	Kind   string
	Column string
	Path   string
	Detail string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Kind != "" {
		fmt.Fprintf(&b, ": %s", e.Kind)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	return b.String()
}

// Is lets errors.Is(err, ErrSchema) match every SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// ClusterError attributes a stage failure to the cluster it occurred on.
type ClusterError struct {
	ClusterID string
	Stage     string
	Err       error
}

func (e *ClusterError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("cluster %s: %s: %v", e.ClusterID, e.Stage, e.Err)
	}
	return fmt.Sprintf("cluster %s: %v", e.ClusterID, e.Err)
}

func (e *ClusterError) Unwrap() error {
	return e.Err
}

// ClusterOf returns the cluster a failure was attributed to, if any.
func ClusterOf(err error) (string, bool) {
	var ce *ClusterError
	if errors.As(err, &ce) {
		return ce.ClusterID, true
	}
	return "", false
}

// Kind returns a short classification label for err, suitable for reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputNotFound):
		return "input_not_found"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrPartialDownload):
		return "partial_download"
	case errors.Is(err, ErrRemoteConflict):
		return "remote_conflict"
	case errors.Is(err, ErrCatalogWrite):
		return "catalog_write"
	case errors.Is(err, ErrRemote):
		return "remote"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

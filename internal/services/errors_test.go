package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"clustersync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrRemote, "upload", "put", "failed", base)
	if !errors.Is(err, services.ErrRemote) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"upload", "put", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestSchemaErrorMatchesMarker(t *testing.T) {
	err := fmt.Errorf("convert: %w", &services.SchemaError{Kind: "gene_list", Column: "symbol", Path: "GeneList.txt"})
	if !errors.Is(err, services.ErrSchema) {
		t.Fatalf("expected ErrSchema match for %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "gene_list") || !strings.Contains(msg, `"symbol"`) {
		t.Fatalf("expected kind and column in %q", msg)
	}
	if services.Kind(err) != "schema" {
		t.Fatalf("unexpected kind %q", services.Kind(err))
	}
}

func TestClusterErrorCarriesID(t *testing.T) {
	inner := services.Wrap(services.ErrInputNotFound, "convert", "open", "missing", nil)
	err := error(&services.ClusterError{ClusterID: "c7", Stage: "convert", Err: inner})
	id, ok := services.ClusterOf(fmt.Errorf("dispatch: %w", err))
	if !ok || id != "c7" {
		t.Fatalf("unexpected cluster %q %v", id, ok)
	}
	if !errors.Is(err, services.ErrInputNotFound) {
		t.Fatal("expected inner marker to survive")
	}
	if !strings.HasPrefix(err.Error(), "cluster c7: convert:") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindClassification(t *testing.T) {
	cases := map[error]string{
		nil: "",
		services.Wrap(services.ErrRemoteConflict, "", "", "", nil):  "remote_conflict",
		services.Wrap(services.ErrCatalogWrite, "", "", "", nil):    "catalog_write",
		services.Wrap(services.ErrPartialDownload, "", "", "", nil): "partial_download",
		errors.New("other"): "transient",
	}
	for err, want := range cases {
		if got := services.Kind(err); got != want {
			t.Fatalf("Kind(%v) = %q, want %q", err, got, want)
		}
	}
}

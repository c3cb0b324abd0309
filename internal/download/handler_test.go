package download_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"clustersync/internal/config"
	"clustersync/internal/dataset"
	"clustersync/internal/download"
	"clustersync/internal/logging"
	"clustersync/internal/remotestore"
	"clustersync/internal/services"
	"clustersync/internal/testsupport"
)

func setup(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *download.Handler) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	testsupport.WriteMetadata(t, cfg,
		[]string{"indexed", "Human", "src/indexed.tagAlign.gz", "src/indexed.tagAlign.gz.tbi", "2000000"},
		[]string{"unindexed", "Human", "src/unindexed.tagAlign.gz", "NA", "2000000"},
		[]string{"mouse", "Mouse", "src/mouse.tagAlign.gz", "src/mouse.tagAlign.gz.tbi", "2000000"},
	)
	for _, id := range []string{"src/indexed.tagAlign.gz", "src/indexed.tagAlign.gz.tbi", "src/unindexed.tagAlign.gz"} {
		testsupport.WriteRemote(t, cfg, id, "payload "+id)
	}
	store := remotestore.NewLocal(cfg.Remote.LocalRoot)
	return cfg, download.NewHandler(cfg, store, logging.NewNop())
}

func TestDiscoverHonorsRequireIndex(t *testing.T) {
	_, h := setup(t)
	ids, err := h.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"indexed", "unindexed"}) {
		t.Fatalf("unexpected ids %v", ids)
	}

	_, strict := setup(t, testsupport.WithRequireIndex(true))
	ids, err = strict.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"indexed"}) {
		t.Fatalf("unexpected strict ids %v", ids)
	}
}

func TestExecuteFetchesPair(t *testing.T) {
	cfg, h := setup(t)
	ctx := context.Background()
	if _, err := h.Execute(ctx, "indexed"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	dir := dataset.NewLayout(cfg).DownloadDir("indexed")
	for _, name := range []string{"indexed.tagAlign.gz", "indexed.tagAlign.gz.tbi"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if err := h.Verify("indexed"); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestExecuteWithoutIndexReference(t *testing.T) {
	_, h := setup(t)
	if _, err := h.Execute(context.Background(), "unindexed"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := h.Verify("unindexed"); err != nil {
		t.Fatalf("cluster without index reference should verify: %v", err)
	}
}

func TestVerifyRequiresIndexOnlyWhenNamed(t *testing.T) {
	cfg, h := setup(t)
	layout := dataset.NewLayout(cfg)
	for _, id := range []string{"indexed", "unindexed"} {
		testsupport.WriteFile(t, filepath.Join(layout.DownloadDir(id), id+".tagAlign.gz"), "payload")
	}

	if err := h.Verify("indexed"); !errors.Is(err, services.ErrPartialDownload) {
		t.Fatalf("cluster with an index reference needs the index on disk, got %v", err)
	}
	if err := h.Verify("unindexed"); err != nil {
		t.Fatalf("cluster without an index reference should verify on the primary: %v", err)
	}
}

func TestExecuteReplacesPartialDownload(t *testing.T) {
	cfg, h := setup(t)
	dir := dataset.NewLayout(cfg).DownloadDir("indexed")
	testsupport.WriteFile(t, filepath.Join(dir, "indexed.tagAlign.gz"), "truncated")
	testsupport.WriteFile(t, filepath.Join(dir, "stale.tmp"), "junk")

	if err := h.Verify("indexed"); !errors.Is(err, services.ErrPartialDownload) {
		t.Fatalf("expected partial download before fetch, got %v", err)
	}
	if _, err := h.Execute(context.Background(), "indexed"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stale.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected directory to be recreated, stat err %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "indexed.tagAlign.gz"))
	if err != nil || string(data) != "payload src/indexed.tagAlign.gz" {
		t.Fatalf("unexpected primary content %q (%v)", data, err)
	}
}

func TestExecuteMissingRemoteObject(t *testing.T) {
	cfg, h := setup(t)
	if err := os.Remove(filepath.Join(cfg.Remote.LocalRoot, "src", "indexed.tagAlign.gz.tbi")); err != nil {
		t.Fatal(err)
	}
	_, err := h.Execute(context.Background(), "indexed")
	if !errors.Is(err, services.ErrRemoteConflict) {
		t.Fatalf("expected absent remote object error, got %v", err)
	}
	if err := h.Verify("indexed"); !errors.Is(err, services.ErrPartialDownload) {
		t.Fatalf("expected partial download after failed fetch, got %v", err)
	}
}

func TestExecuteUnknownCluster(t *testing.T) {
	_, h := setup(t)
	if _, err := h.Execute(context.Background(), "ghost"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package biosamples_test

import (
	"path/filepath"
	"testing"

	"clustersync/internal/biosamples"
	"clustersync/internal/catalog"
	"clustersync/internal/dataset"
	"clustersync/internal/testsupport"
)

func TestWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Biosamples.Output = filepath.Join(testsupport.BaseDir(cfg), "out", "biosamples.tsv")
	cfg.Biosamples.HiCDir = "/hic/avg"
	cfg.Biosamples.HiCType = "avg"
	cfg.Biosamples.HiCGamma = 1.024238616787792
	cfg.Biosamples.HiCScale = 5.9594510043736655
	cfg.Biosamples.HiCResolution = 5000

	layout := dataset.NewLayout(cfg)
	testsupport.WriteGzip(t, filepath.Join(layout.DownloadDir("B"), "b.tagAlign.gz"), "chr1\t1\t2\n")
	testsupport.WriteGzip(t, filepath.Join(layout.DownloadDir("A"), "a.tagAlign.gz"), "chr1\t1\t2\n")
	testsupport.WriteFile(t, filepath.Join(layout.DownloadDir("A"), "a.tagAlign.gz.tbi"), "idx")
	testsupport.WriteFile(t, filepath.Join(layout.DownloadDir("empty"), "notes.txt"), "x")

	n, err := biosamples.Write(cfg)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	table, err := catalog.ReadTableFile(cfg.Biosamples.Output)
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	cols := table.Columns()
	want := biosamples.Columns()
	if len(cols) != len(want) {
		t.Fatalf("columns = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("columns = %v, want %v", cols, want)
		}
	}

	row := table.Record(0)
	if row[biosamples.ColumnBiosample] != "A" {
		t.Fatalf("expected first biosample A, got %q", row[biosamples.ColumnBiosample])
	}
	if !filepath.IsAbs(row[biosamples.ColumnATAC]) || filepath.Base(row[biosamples.ColumnATAC]) != "a.tagAlign.gz" {
		t.Fatalf("unexpected ATAC path %q", row[biosamples.ColumnATAC])
	}
	checks := map[string]string{
		biosamples.ColumnDefaultFeature: "ATAC",
		biosamples.ColumnHiCDir:         "/hic/avg",
		biosamples.ColumnHiCType:        "avg",
		biosamples.ColumnHiCGamma:       "1.024238616787792",
		biosamples.ColumnHiCScale:       "5.9594510043736655",
		biosamples.ColumnHiCResolution:  "5000",
		biosamples.ColumnDHS:            "",
	}
	for col, want := range checks {
		if got := row[col]; got != want {
			t.Fatalf("%s = %q, want %q", col, got, want)
		}
	}
}

func TestBuildWithoutDownloads(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	table, err := biosamples.Build(dataset.NewLayout(cfg), cfg.Biosamples)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d rows", table.Len())
	}
}

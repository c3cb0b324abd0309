package qc

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"clustersync/internal/dataset"
)

// DefaultSampleLines is how many leading records the sort check reads.
const DefaultSampleLines = 1000

// Report is the outcome of inspecting every downloaded primary file.
type Report struct {
	Files     []FileReport `json:"files"`
	Unsorted  []string     `json:"unsorted,omitempty"`
	Unindexed []string     `json:"unindexed,omitempty"`
	Errors    []string     `json:"errors,omitempty"`
}

// FileReport describes one primary file.
type FileReport struct {
	ClusterID string `json:"cluster_id"`
	Path      string `json:"path"`
	Sorted    bool   `json:"sorted"`
	Indexed   bool   `json:"indexed"`
	// Detail names the first out-of-order record when Sorted is false.
	Detail string `json:"detail,omitempty"`
}

// OK reports whether every inspected file is sorted and indexed.
func (r *Report) OK() bool {
	return len(r.Unsorted) == 0 && len(r.Unindexed) == 0 && len(r.Errors) == 0
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Inspect checks every primary file under the layout's dataset root. A file
// that cannot be read is listed in Errors and does not stop the scan.
func Inspect(layout dataset.Layout, sampleLines int) (*Report, error) {
	if sampleLines <= 0 {
		sampleLines = DefaultSampleLines
	}
	files, err := layout.DownloadedPrimaries()
	if err != nil {
		return nil, err
	}
	r := &Report{}
	for _, f := range files {
		fr := FileReport{ClusterID: f.ClusterID, Path: f.Path}

		if _, err := os.Stat(f.IndexPath()); err == nil {
			fr.Indexed = true
		} else if !errors.Is(err, fs.ErrNotExist) {
			r.addError("stat %s: %v", f.IndexPath(), err)
		}

		sorted, detail, err := CheckSorted(f.Path, sampleLines)
		if err != nil {
			r.addError("%s: %v", f.Path, err)
		} else {
			fr.Sorted = sorted
			fr.Detail = detail
		}

		if err == nil && !fr.Sorted {
			r.Unsorted = append(r.Unsorted, f.Path)
		}
		if !fr.Indexed {
			r.Unindexed = append(r.Unindexed, f.Path)
		}
		r.Files = append(r.Files, fr)
	}
	return r, nil
}

// CheckSorted reads up to limit records from a gzip-compressed BED-like file
// and reports whether they are coordinate sorted: records of one chromosome
// are contiguous and their start positions never decrease. The returned
// detail names the first violation.
func CheckSorted(path string, limit int) (bool, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, "", err
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return false, "", fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()

	var (
		seen      = make(map[string]struct{})
		current   string
		lastStart int64
		line      int
	)
	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() && line < limit {
		line++
		text := scanner.Text()
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "track") {
			continue
		}
		chrom, start, err := parseRecord(text)
		if err != nil {
			return false, "", fmt.Errorf("line %d: %w", line, err)
		}
		if chrom != current {
			if _, ok := seen[chrom]; ok {
				return false, fmt.Sprintf("line %d: %s appears again after %s", line, chrom, current), nil
			}
			seen[chrom] = struct{}{}
			current = chrom
			lastStart = start
			continue
		}
		if start < lastStart {
			return false, fmt.Sprintf("line %d: %s:%d follows %s:%d", line, chrom, start, chrom, lastStart), nil
		}
		lastStart = start
	}
	if err := scanner.Err(); err != nil {
		return false, "", fmt.Errorf("read: %w", err)
	}
	return true, "", nil
}

func parseRecord(text string) (string, int64, error) {
	fields := strings.SplitN(text, "\t", 3)
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("expected at least 2 tab-separated fields")
	}
	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid start %q", fields[1])
	}
	return fields[0], start, nil
}

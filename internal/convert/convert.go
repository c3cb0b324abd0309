package convert

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"clustersync/internal/config"
	"clustersync/internal/dataset"
	"clustersync/internal/fileutil"
	"clustersync/internal/services"
)

// Provenance is stamped into the comment block of every output file.
type Provenance struct {
	Code    string
	Contact string
	Genome  string
}

// ProvenanceFromConfig reads the provenance section.
func ProvenanceFromConfig(cfg *config.Config) Provenance {
	return Provenance{
		Code:    cfg.Provenance.CodeURL,
		Contact: cfg.Provenance.Contact,
		Genome:  cfg.Provenance.Genome,
	}
}

// Options parameterize a conversion.
type Options struct {
	Provenance Provenance
	// Threshold appears in the description of thresholded predictions.
	Threshold float64
}

// Convert reads inputPath, rewrites it into the canonical schema for kind and
// writes the result into outputDir under the input's base name. The output
// is written through a temporary file so a partial file is never visible.
func Convert(kind dataset.Artifact, clusterID, inputPath, outputDir string, opts Options) (string, error) {
	schema, ok := schemaFor(kind, opts.Threshold)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "convert", "select schema", kind.String(), nil)
	}
	header, rows, err := readInput(kind, inputPath, schema)
	if err != nil {
		return "", err
	}
	columns, err := arrange(kind, inputPath, header, schema)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	outputPath := filepath.Join(outputDir, filepath.Base(inputPath))
	err = fileutil.WriteAtomic(outputPath, 0o644, func(w io.Writer) error {
		if !schema.compressed {
			return writeTable(w, schema, opts.Provenance, columns, rows, schema.injected(clusterID))
		}
		zw, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
		if err != nil {
			return err
		}
		if err := writeTable(zw, schema, opts.Provenance, columns, rows, schema.injected(clusterID)); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", outputPath, err)
	}
	return outputPath, nil
}

// column is an output column sourced either from an input field (src >= 0)
// or from an injected constant.
type column struct {
	name string
	src  int
}

// maxLineBytes bounds a single input line.
const maxLineBytes = 16 << 20

// readInput parses a tab-separated input. Headered kinds take their header
// from the first non-empty line; headerless kinds use the fixed positional names and
// require every row to carry exactly that many fields.
func readInput(kind dataset.Artifact, path string, schema kindSchema) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, services.Wrap(services.ErrInputNotFound, "convert", "open input", path, err)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var src io.Reader = bufio.NewReader(file)
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(src)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer zr.Close()
		src = zr
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	next := func() ([]string, bool) {
		for scanner.Scan() {
			line++
			text := strings.TrimSuffix(scanner.Text(), "\r")
			if text == "" {
				continue
			}
			return strings.Split(text, "\t"), true
		}
		return nil, false
	}

	header := schema.headerless
	if header == nil {
		fields, ok := next()
		if !ok {
			if err := scanner.Err(); err != nil {
				return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
			}
			return nil, nil, &services.SchemaError{Kind: kind.String(), Path: path, Detail: "empty file"}
		}
		header = fields
	}

	var rows [][]string
	for {
		record, ok := next()
		if !ok {
			break
		}
		if len(record) != len(header) {
			if len(record) < len(header) {
				return nil, nil, &services.SchemaError{Kind: kind.String(), Column: header[len(record)], Path: path,
					Detail: fmt.Sprintf("line %d has %d fields, expected %d", line, len(record), len(header))}
			}
			return nil, nil, &services.SchemaError{Kind: kind.String(), Path: path,
				Detail: fmt.Sprintf("line %d has %d fields, expected %d", line, len(record), len(header))}
		}
		rows = append(rows, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return header, rows, nil
}

// arrange applies the rename map and orders columns: canonical columns first
// in published order, then the remaining input columns in input order.
// Injected columns replace input columns of the same name.
func arrange(kind dataset.Artifact, path string, header []string, schema kindSchema) ([]column, error) {
	injected := schema.injected("")
	byName := make(map[string]int, len(header))
	var inputOrder []string
	for i, raw := range header {
		name := raw
		if renamed, ok := schema.renames[raw]; ok {
			name = renamed
		}
		if _, dup := byName[name]; dup {
			return nil, &services.SchemaError{Kind: kind.String(), Column: name, Path: path, Detail: "duplicate column after rename"}
		}
		byName[name] = i
		inputOrder = append(inputOrder, name)
	}

	columns := make([]column, 0, len(schema.canonical)+len(inputOrder))
	placed := make(map[string]struct{}, len(schema.canonical))
	for _, name := range schema.canonical {
		placed[name] = struct{}{}
		if _, ok := injected[name]; ok {
			columns = append(columns, column{name: name, src: -1})
			continue
		}
		src, ok := byName[name]
		if !ok {
			return nil, &services.SchemaError{Kind: kind.String(), Column: name, Path: path, Detail: "missing column"}
		}
		columns = append(columns, column{name: name, src: src})
	}
	for _, name := range inputOrder {
		if _, ok := placed[name]; ok {
			continue
		}
		if _, ok := injected[name]; ok {
			continue
		}
		columns = append(columns, column{name: name, src: byName[name]})
	}
	return columns, nil
}

func writeTable(w io.Writer, schema kindSchema, prov Provenance, columns []column, rows [][]string, injected map[string]string) error {
	buf := bufio.NewWriter(w)
	for _, line := range commentBlock(schema, prov) {
		if _, err := buf.WriteString(line + "\n"); err != nil {
			return err
		}
	}

	record := make([]string, len(columns))
	for i, col := range columns {
		record[i] = col.name
	}
	if err := writeRecord(buf, record); err != nil {
		return err
	}
	for _, row := range rows {
		for i, col := range columns {
			if col.src < 0 {
				record[i] = injected[col.name]
			} else {
				record[i] = row[col.src]
			}
		}
		if err := writeRecord(buf, record); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// writeRecord writes cells joined by tabs. Cells are never quoted, so values
// pass through exactly as read.
func writeRecord(w *bufio.Writer, cells []string) error {
	if _, err := w.WriteString(strings.Join(cells, "\t")); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func commentBlock(schema kindSchema, prov Provenance) []string {
	lines := []string{
		"#FileType=" + schema.fileType,
		"#Code=" + prov.Code,
		"#Contact=" + prov.Contact,
		"#Genome=" + prov.Genome,
		"#Description=" + schema.description,
	}
	if schema.directional {
		lines = append(lines, "#Directional=true")
	}
	return append(lines, "#BiosampleAgnostic=false")
}

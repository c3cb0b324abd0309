package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"clustersync/internal/fileutil"
	"clustersync/internal/services"
)

// Table is an in-memory tab-separated table with a header row. Cells are
// split on tabs without any quoting rules, and each row remembers the line it
// was read from, so rows nobody touched are written back byte for byte.
type Table struct {
	columns []string
	index   map[string]int
	// header is the raw header line including its terminator, or "" once the
	// header changed.
	header string
	rows   []row
	// eol terminates re-serialized lines. It follows the first line read.
	eol string
}

type row struct {
	cells []string
	// raw is the original line including its terminator, or "" once a cell
	// changed.
	raw string
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	t := &Table{eol: "\n"}
	for _, col := range columns {
		t.addColumn(col)
	}
	return t
}

// ReadTable parses a tab-separated table whose first line is the header.
// Blank lines are skipped. An empty input yields an empty table with no
// columns.
func ReadTable(r io.Reader) (*Table, error) {
	reader := bufio.NewReader(r)
	t := NewTable()

	first := true
	lineNo := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
		if line == "" && errors.Is(err, io.EOF) {
			break
		}
		lineNo++
		content, eol := splitTerminator(line)
		if first && eol != "" {
			t.eol = eol
		}
		if eol == "" {
			// Final line without a terminator.
			line += t.eol
		}
		if content == "" {
			if errors.Is(err, io.EOF) {
				break
			}
			continue
		}

		cells := strings.Split(content, "\t")
		if first {
			first = false
			for _, col := range cells {
				if _, dup := t.index[col]; dup {
					return nil, &services.SchemaError{Kind: "table", Column: col, Detail: "duplicate column"}
				}
				t.addColumn(col)
			}
			t.header = line
		} else {
			if len(cells) > len(t.columns) {
				return nil, &services.SchemaError{Kind: "table", Detail: fmt.Sprintf("line %d has %d fields, header has %d", lineNo, len(cells), len(t.columns))}
			}
			for len(cells) < len(t.columns) {
				cells = append(cells, "")
			}
			t.rows = append(t.rows, row{cells: cells, raw: line})
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}
	return t, nil
}

func splitTerminator(line string) (string, string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return strings.TrimSuffix(line, "\r\n"), "\r\n"
	case strings.HasSuffix(line, "\n"):
		return strings.TrimSuffix(line, "\n"), "\n"
	default:
		return line, ""
	}
}

// ReadTableFile parses the table stored at path.
func ReadTableFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	t, err := ReadTable(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Columns returns the header in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Require returns a SchemaError naming the first missing column.
func (t *Table) Require(kind string, columns ...string) error {
	for _, col := range columns {
		if !t.HasColumn(col) {
			return &services.SchemaError{Kind: kind, Column: col, Detail: "missing column"}
		}
	}
	return nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Value returns the cell at row i for column col, or "" when the column is
// absent.
func (t *Table) Value(i int, col string) string {
	idx, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.rows) {
		return ""
	}
	return t.rows[i].cells[idx]
}

// Record returns row i as a column to value map.
func (t *Table) Record(i int) map[string]string {
	out := make(map[string]string, len(t.columns))
	for idx, col := range t.columns {
		out[col] = t.rows[i].cells[idx]
	}
	return out
}

// Find returns the first row whose key column equals key, or -1.
func (t *Table) Find(keyCol, key string) int {
	idx, ok := t.index[keyCol]
	if !ok {
		return -1
	}
	for i, r := range t.rows {
		if r.cells[idx] == key {
			return i
		}
	}
	return -1
}

// Keys returns the values of col in row order.
func (t *Table) Keys(col string) []string {
	idx, ok := t.index[col]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r.cells[idx])
	}
	return out
}

// Upsert updates the row whose keyCol equals values[keyCol], or appends a new
// row. Columns not yet in the header are appended in sorted order and existing
// rows get an empty cell for them. Cells not named in values are left as is.
func (t *Table) Upsert(keyCol string, values map[string]string) error {
	key, ok := values[keyCol]
	if !ok || key == "" {
		return fmt.Errorf("upsert: missing key column %q", keyCol)
	}
	t.addColumn(keyCol)
	var added []string
	for col := range values {
		if !t.HasColumn(col) {
			added = append(added, col)
		}
	}
	sort.Strings(added)
	for _, col := range added {
		t.addColumn(col)
	}

	i := t.Find(keyCol, key)
	if i < 0 {
		t.rows = append(t.rows, row{cells: make([]string, len(t.columns))})
		i = len(t.rows) - 1
	}
	for col, value := range values {
		if cell := &t.rows[i].cells[t.index[col]]; *cell != value {
			*cell = value
			t.rows[i].raw = ""
		}
	}
	return nil
}

// DeleteWhere removes the rows for which drop returns true and reports how
// many were removed. drop reads cells of the candidate row by column name.
func (t *Table) DeleteWhere(drop func(record func(col string) string) bool) int {
	kept := t.rows[:0]
	removed := 0
	for _, r := range t.rows {
		get := func(col string) string {
			if idx, ok := t.index[col]; ok {
				return r.cells[idx]
			}
			return ""
		}
		if drop(get) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(t.rows); i++ {
		t.rows[i] = row{}
	}
	t.rows = kept
	return removed
}

// Write serializes the table as tab-separated text with a header row. Rows
// read from input and left untouched are written exactly as they were read.
func (t *Table) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if t.header != "" {
		bw.WriteString(t.header)
	} else {
		t.writeLine(bw, t.columns)
	}
	for _, r := range t.rows {
		if r.raw != "" {
			bw.WriteString(r.raw)
			continue
		}
		t.writeLine(bw, r.cells)
	}
	return bw.Flush()
}

func (t *Table) writeLine(bw *bufio.Writer, cells []string) {
	bw.WriteString(strings.Join(cells, "\t"))
	bw.WriteString(t.eol)
}

// WriteFile writes the table to path through a temporary file.
func (t *Table) WriteFile(path string) error {
	return fileutil.WriteAtomic(path, 0o644, t.Write)
}

func (t *Table) addColumn(col string) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if _, ok := t.index[col]; ok {
		return
	}
	t.index[col] = len(t.columns)
	t.columns = append(t.columns, col)
	t.header = ""
	for i := range t.rows {
		t.rows[i].cells = append(t.rows[i].cells, "")
		t.rows[i].raw = ""
	}
}

package catalog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clustersync/internal/catalog"
	"clustersync/internal/services"
)

const summary = "CellClusterID\tCellClusterFolderID\tPeaksMACS2\n" +
	"c1\tpredictions/c1\tpredictions/c1/macs2_peaks.narrowPeak.sorted\n" +
	"c2\tpredictions/c2\tpredictions/c2/macs2_peaks.narrowPeak.sorted\n" +
	"c3\tpredictions/c3\t\n"

func TestTableRoundTripIsByteIdentical(t *testing.T) {
	table, err := catalog.ReadTable(strings.NewReader(summary))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))
	assert.Equal(t, summary, buf.String())
}

func TestDeleteWhereLeavesOtherRowsUnchanged(t *testing.T) {
	table, err := catalog.ReadTable(strings.NewReader(summary))
	require.NoError(t, err)

	removed := table.DeleteWhere(func(get func(string) string) bool { return get("CellClusterID") == "c2" })
	assert.Equal(t, 1, removed)

	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))
	lines := strings.Split(summary, "\n")
	want := strings.Join([]string{lines[0], lines[1], lines[3], ""}, "\n")
	assert.Equal(t, want, buf.String())

	assert.Zero(t, table.DeleteWhere(func(get func(string) string) bool { return get("CellClusterID") == "c2" }))
}

func TestUpsertAppendsColumnsAndRows(t *testing.T) {
	table, err := catalog.ReadTable(strings.NewReader(summary))
	require.NoError(t, err)

	require.NoError(t, table.Upsert("CellClusterID", map[string]string{"CellClusterID": "c3", "PeaksMACS2": "p3", "GeneList": "g3"}))
	require.NoError(t, table.Upsert("CellClusterID", map[string]string{"CellClusterID": "c4", "GeneList": "g4"}))

	assert.Equal(t, []string{"CellClusterID", "CellClusterFolderID", "PeaksMACS2", "GeneList"}, table.Columns())
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, "p3", table.Value(table.Find("CellClusterID", "c3"), "PeaksMACS2"))
	assert.Equal(t, "predictions/c3", table.Value(table.Find("CellClusterID", "c3"), "CellClusterFolderID"))
	assert.Equal(t, "", table.Value(table.Find("CellClusterID", "c1"), "GeneList"))
	assert.Equal(t, "g4", table.Record(3)["GeneList"])

	assert.Error(t, table.Upsert("CellClusterID", map[string]string{"GeneList": "x"}))
}

func TestReadTablePadsShortRowsAndRejectsLongRows(t *testing.T) {
	table, err := catalog.ReadTable(strings.NewReader("a\tb\tc\n1\t2\n"))
	require.NoError(t, err)
	assert.Equal(t, "", table.Value(0, "c"))

	_, err = catalog.ReadTable(strings.NewReader("a\tb\n1\t2\t3\n"))
	assert.ErrorIs(t, err, services.ErrSchema)

	_, err = catalog.ReadTable(strings.NewReader("a\ta\n"))
	assert.ErrorIs(t, err, services.ErrSchema)
}

func TestReadTableEmptyInput(t *testing.T) {
	table, err := catalog.ReadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Columns())
}

func TestDeleteWhereKeepsIrregularRowsVerbatim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "quote in cell",
			input: "id\tnote\nA\tsay \"hi\"\nB\tx\n",
			want:  "id\tnote\nA\tsay \"hi\"\n",
		},
		{
			name:  "leading whitespace",
			input: "id\tnote\nA\t leading\nB\tx\n",
			want:  "id\tnote\nA\t leading\n",
		},
		{
			name:  "short row",
			input: "id\tnote\tother\nA\tv\nB\tx\ty\n",
			want:  "id\tnote\tother\nA\tv\n",
		},
		{
			name:  "crlf endings",
			input: "id\tnote\r\nA\tv\r\nB\tx\r\n",
			want:  "id\tnote\r\nA\tv\r\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			table, err := catalog.ReadTable(strings.NewReader(tc.input))
			require.NoError(t, err)

			removed := table.DeleteWhere(func(get func(string) string) bool { return get("id") == "B" })
			require.Equal(t, 1, removed)

			var buf bytes.Buffer
			require.NoError(t, table.Write(&buf))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestUpsertRewritesOnlyTouchedRows(t *testing.T) {
	input := "id\tnote\r\nA\tsay \"hi\"\r\nB\told\r\n"
	table, err := catalog.ReadTable(strings.NewReader(input))
	require.NoError(t, err)

	require.NoError(t, table.Upsert("id", map[string]string{"id": "B", "note": "new"}))
	require.NoError(t, table.Upsert("id", map[string]string{"id": "C", "note": " spaced"}))

	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))
	assert.Equal(t, "id\tnote\r\nA\tsay \"hi\"\r\nB\tnew\r\nC\t spaced\r\n", buf.String())
}

func TestReadTableWithoutTrailingNewline(t *testing.T) {
	table, err := catalog.ReadTable(strings.NewReader("id\tnote\nA\tv"))
	require.NoError(t, err)
	assert.Equal(t, "v", table.Value(0, "note"))

	require.NoError(t, table.Upsert("id", map[string]string{"id": "B", "note": "w"}))
	var buf bytes.Buffer
	require.NoError(t, table.Write(&buf))
	assert.Equal(t, "id\tnote\nA\tv\nB\tw\n", buf.String())
}

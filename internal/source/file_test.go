package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVFileFetch(t *testing.T) {
	path := writeFile(t, "cas.csv", "\ufeffsemaine, femmes ,hommes\nS1,10,12\nS2,14,9\n")
	ds, err := NewCSVFile("cas", path, "")
	require.NoError(t, err)

	rows, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S1", rows[0]["semaine"])
	assert.Equal(t, "10", rows[0]["femmes"])
	assert.Equal(t, "9", rows[1]["hommes"])
}

func TestCSVFileDelimiter(t *testing.T) {
	path := writeFile(t, "d.csv", "a;b\n1;2\n")
	ds, err := NewCSVFile("d", path, ";")
	require.NoError(t, err)
	rows, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Row{{"a": "1", "b": "2"}}, rows)

	tabs := writeFile(t, "t.tsv", "a\tb\n1\t2\n")
	ds, err = NewCSVFile("t", tabs, `\t`)
	require.NoError(t, err)
	rows, err = ds.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", rows[0]["b"])

	_, err = NewCSVFile("d", path, ";;")
	assert.Error(t, err)
}

func TestCSVFileErrors(t *testing.T) {
	_, err := NewCSVFile("d", "", "")
	assert.Error(t, err)

	ds, err := NewCSVFile("d", filepath.Join(t.TempDir(), "missing.csv"), "")
	require.NoError(t, err)
	_, err = ds.Fetch(context.Background())
	var se *SourceError
	assert.ErrorAs(t, err, &se)

	bad := writeFile(t, "bad.csv", "a,b\n\"unterminated,2\n")
	ds, err = NewCSVFile("d", bad, "")
	require.NoError(t, err)
	_, err = ds.Fetch(context.Background())
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCSVFileEmpty(t *testing.T) {
	ds, err := NewCSVFile("d", writeFile(t, "e.csv", ""), "")
	require.NoError(t, err)
	rows, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestJSONFileFetch(t *testing.T) {
	path := writeFile(t, "p.json", `[{"code":"3012","femmes":0.9},{"code":"7511","femmes":0.03}]`)
	ds, err := NewJSONFile("professions", path, "")
	require.NoError(t, err)

	rows, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "3012", rows[0]["code"])
	assert.Equal(t, 0.03, rows[1]["femmes"])
}

func TestDecodeRows(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		resultPath string
		want       int
		wantErr    bool
	}{
		{"array", `[{"a":1}]`, "", 1, false},
		{"data field", `{"data":[{"a":1},{"a":2}]}`, "", 2, false},
		{"empty data field keeps object", `{"data":[],"n":1}`, "", 1, false},
		{"nested path", `{"x":{"y":[{"a":1}]}}`, "x.y", 1, false},
		{"path to object", `{"x":{"a":1}}`, "x", 1, false},
		{"missing path", `{"x":{}}`, "x.y", 0, true},
		{"path through scalar", `{"x":3}`, "x.y", 0, true},
		{"lines", "{\"a\":1}\n{\"a\":2}\n", "", 2, false},
		{"array of scalars", `[1,2]`, "", 0, true},
		{"scalar", `42`, "", 0, true},
		{"invalid", `{`, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := decodeRows("d", []byte(tt.data), tt.resultPath)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

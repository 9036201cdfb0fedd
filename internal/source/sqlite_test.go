package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE deces (semaine TEXT, femmes INTEGER, hommes INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO deces VALUES ('S1', 3, 5), ('S2', 4, 2)`)
	require.NoError(t, err)
	return path
}

func TestSQLiteTable(t *testing.T) {
	ds, err := NewSQLite("deces", seedSQLite(t), "deces", "")
	require.NoError(t, err)
	defer ds.Close()

	rows, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S1", rows[0]["semaine"])
	assert.EqualValues(t, 5, rows[0]["hommes"])
}

func TestSQLiteQuery(t *testing.T) {
	ds, err := NewSQLite("deces", seedSQLite(t), "", "SELECT semaine, femmes + hommes AS total FROM deces ORDER BY total DESC")
	require.NoError(t, err)
	defer ds.Close()

	rows, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S1", rows[0]["semaine"])
	assert.EqualValues(t, 8, rows[0]["total"])
}

func TestSQLiteValidation(t *testing.T) {
	tests := []struct {
		name, path, table, query, reason string
	}{
		{"no db", "", "t", "", "db is required"},
		{"no table or query", "x.db", "", "", "table or query is required"},
		{"bad table", "x.db", "t; DROP TABLE t", "", "invalid table name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLite("d", tt.path, tt.table, tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestSQLiteMissingTable(t *testing.T) {
	ds, err := NewSQLite("d", seedSQLite(t), "absent", "")
	require.NoError(t, err)
	defer ds.Close()

	_, err = ds.Fetch(context.Background())
	var se *SourceError
	assert.ErrorAs(t, err, &se)
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, isValidIdentifier("deces_2020"))
	assert.True(t, isValidIdentifier("_x"))
	assert.False(t, isValidIdentifier("2020"))
	assert.False(t, isValidIdentifier("a-b"))
	assert.False(t, isValidIdentifier(""))
}

func TestPostgresValidation(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := NewPostgres("d", "postgres://localhost/db", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")

	_, err = NewPostgres("d", "", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/db?sslmode=disable")
	ds, err := NewPostgres("d", "", "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, "d", ds.Name())
	assert.NoError(t, ds.Close())
}

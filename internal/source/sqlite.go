package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLite reads rows from a SQLite database opened read-only.
type SQLite struct {
	name  string
	path  string
	query string
	db    *sql.DB
}

// NewSQLite opens path read-only. Either a table, read whole, or a query
// is required.
func NewSQLite(name, path, table, query string) (*SQLite, error) {
	if path == "" {
		return nil, &ValidationError{Dataset: name, Field: "db", Reason: "db is required"}
	}
	switch {
	case query != "":
	case table == "":
		return nil, &ValidationError{Dataset: name, Field: "table", Reason: "table or query is required"}
	case !isValidIdentifier(table):
		return nil, &ValidationError{Dataset: name, Field: "table", Reason: fmt.Sprintf("invalid table name %q", table)}
	default:
		query = fmt.Sprintf("SELECT * FROM %s", table)
	}

	dsn := (&url.URL{Scheme: "file", Opaque: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &SourceError{Dataset: name, Operation: "open", Err: err}
	}
	return &SQLite{name: name, path: path, query: query, db: db}, nil
}

// Name returns the dataset name
func (s *SQLite) Name() string {
	return s.name
}

// Path is the database file.
func (s *SQLite) Path() string {
	return s.path
}

// Fetch runs the query.
func (s *SQLite) Fetch(ctx context.Context) ([]Row, error) {
	return queryRows(ctx, s.db, s.name, s.query)
}

// Close releases the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

package source

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Postgres runs a query against a PostgreSQL database.
type Postgres struct {
	name  string
	query string
	db    *sql.DB
}

// NewPostgres prepares a connection pool. An empty dsn falls back to
// $DATABASE_URL. No connection is made until the first Fetch.
func NewPostgres(name, dsn, query string) (*Postgres, error) {
	if query == "" {
		return nil, &ValidationError{Dataset: name, Field: "query", Reason: "query is required"}
	}
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, &ValidationError{Dataset: name, Field: "dsn", Reason: "set dsn or DATABASE_URL"}
	}

	db, err := sql.Open("postgres", os.ExpandEnv(dsn))
	if err != nil {
		return nil, &SourceError{Dataset: name, Operation: "open", Err: err}
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{name: name, query: query, db: db}, nil
}

// Name returns the dataset name
func (s *Postgres) Name() string {
	return s.name
}

// Fetch executes the query.
func (s *Postgres) Fetch(ctx context.Context) ([]Row, error) {
	return queryRows(ctx, s.db, s.name, s.query)
}

// Close releases the database connection
func (s *Postgres) Close() error {
	return s.db.Close()
}

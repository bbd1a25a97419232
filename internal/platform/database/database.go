package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite3 driver

	"github.com/phrazzld/activity-logger/internal/redact"
)

// Driver names registered by the imported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const (
	memoryPath  = ":memory:"
	pingTimeout = 5 * time.Second
)

// ErrUnsupportedScheme is returned for URLs that name no known database.
var ErrUnsupportedScheme = errors.New("unsupported database scheme")

// Target is a parsed database URL.
type Target struct {
	Driver string
	DSN    string
	// Path is the SQLite file path; empty for PostgreSQL and in-memory SQLite.
	Path string
}

// ParseURL resolves a database URL. SQLite URLs follow the SQLAlchemy
// convention: "sqlite:///rel/path.db" is relative, "sqlite:////abs/path.db"
// is absolute and "sqlite://" or "sqlite:///:memory:" is in memory.
func ParseURL(raw string) (Target, error) {
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		rest := strings.TrimPrefix(raw, "sqlite://")
		rest = strings.TrimPrefix(rest, "/")
		if rest == "" || rest == memoryPath {
			return Target{Driver: DriverSQLite, DSN: memoryPath}, nil
		}
		// The path is escaped so "?" or "#" in a file name cannot leak into
		// the query. busy_timeout avoids "database is locked" under
		// concurrent writers.
		escaped := (&url.URL{Path: rest}).EscapedPath()
		return Target{
			Driver: DriverSQLite,
			DSN:    "file:" + escaped + "?_busy_timeout=5000&_foreign_keys=on",
			Path:   rest,
		}, nil

	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return Target{Driver: DriverPostgres, DSN: raw}, nil
	}

	scheme, _, _ := strings.Cut(raw, "://")
	return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}

// Open establishes a connection to the database and configures connection pools.
// Returns the database connection if successful, or an error if the connection fails.
func Open(ctx context.Context, rawURL string, logger *slog.Logger) (*sql.DB, error) {
	target, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	if target.Path != "" {
		if err := os.MkdirAll(filepath.Dir(target.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(target.Driver, target.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool with reasonable defaults
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if target.DSN == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("failed to close database after ping failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		"driver", target.Driver,
		"url", redact.String(rawURL))
	return db, nil
}

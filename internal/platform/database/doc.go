// Package database opens the application's SQL database from a
// SQLAlchemy-style URL. SQLite (the default) is served by mattn/go-sqlite3
// and PostgreSQL by the pgx stdlib driver.
package database

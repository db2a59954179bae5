// Package database opens connections to the local store.
//
// Two engines are supported:
//   - PostgreSQL through a pgx connection pool
//   - SQLite through database/sql and mattn/go-sqlite3, a single file with
//     foreign keys enforced
package database

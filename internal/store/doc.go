// Package store is the persistent translation cache and usage ledger,
// backed by SQLite. Queries are built with squirrel and scanned with sqlx.
package store

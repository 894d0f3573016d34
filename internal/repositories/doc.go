// Package repositories contains the data access layer for the listening
// history cache. Each repository wraps a *sql.DB handle and exposes typed
// queries over one table.
package repositories

// Package postgres provides a PostgreSQL implementation of the listing cache.
//
// The schema is embedded and applied with golang-migrate when the store is
// opened. Connections come from a pgx pool.
package postgres

// Package adapters provides database driver adapters for the cockpit's
// Postgres engine, allowing it to work with pgxpool.Pool, sql.DB and
// sqlx.DB behind one read-only interface.
package adapters

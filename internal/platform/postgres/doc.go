// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. Its schema ships as embedded goose
// migrations applied by Migrate.
package postgres

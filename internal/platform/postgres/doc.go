// Package postgres implements the scheduling stores of internal/store on
// PostgreSQL through the pgx database/sql driver. Every store accepts a
// store.DBTX so it can run on the pool or inside a transaction.
package postgres

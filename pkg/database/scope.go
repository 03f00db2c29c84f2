package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pooled connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Scope holds the connection a single request works on.
// It is not safe for concurrent use; one request owns it from acquire to Close.
type Scope struct {
	Conn *pgxpool.Conn
	tx   pgx.Tx
}

// Q returns the active transaction when one is open, otherwise the plain connection.
func (s *Scope) Q() Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.Conn
}

// InTx reports whether a transaction is open on the scope.
func (s *Scope) InTx() bool {
	return s.tx != nil
}

// Close rolls back any transaction left open and releases the connection to the pool.
// This MUST be called; use defer scope.Close().
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	if s.tx != nil {
		_ = s.tx.Rollback(context.Background())
		s.tx = nil
	}
	s.Conn.Release()
	s.Conn = nil
}

// Acquire takes a connection from the pool for the duration of one request.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn}, nil
}

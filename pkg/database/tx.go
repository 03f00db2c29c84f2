package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoScope is returned when a repository is called without a scoped connection in context.
var ErrNoScope = errors.New("no database scope in context")

// RunInTx runs fn inside a transaction on the request's scoped connection.
// Repositories called with the context passed to fn join the transaction.
// A transaction already open on the scope is reused, so nested calls commit once at the outermost level.
// The transaction rolls back when fn returns an error.
func RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, ok := GetScope(ctx)
	if !ok {
		return ErrNoScope
	}

	if scope.tx != nil {
		return fn(ctx)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	scope.tx = tx
	defer func() { scope.tx = nil }()

	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

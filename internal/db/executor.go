package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor is the query surface repositories run against. Satisfied by
// *pgxpool.Pool and by pgx.Tx, so tests can substitute either.
type Executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type executorContextKey struct{}

// WithExecutor pins an executor to the context for the duration of a call.
func WithExecutor(ctx context.Context, e Executor) context.Context {
	return context.WithValue(ctx, executorContextKey{}, e)
}

// GetExecutorFromContext returns the pinned executor, falling back to the
// pool. Every storage round trip is independent: there is no transaction
// spanning calls, and drift between them is repaired out-of-band.
func GetExecutorFromContext(ctx context.Context, pool *pgxpool.Pool) Executor {
	if e, ok := ctx.Value(executorContextKey{}).(Executor); ok {
		return e
	}
	return pool
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store errors.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrAssessmentNotFound  = errors.New("assessment not found")
	ErrVersionConflict     = errors.New("session was modified concurrently")
	ErrActiveSessionExists = errors.New("an in-progress session already exists for this candidate")
)

// DBTX is the subset of pgx used by repositories. It is satisfied by
// *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type scanner interface {
	Scan(dest ...any) error
}

package store

import (
	"context"
	"database/sql"
)

// Narrow query seams so stores run identically against *sqlx.DB and
// *sqlx.Tx, and tests can stub a single method.

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

// Tx is the surface stores need from a transaction handle.
type Tx interface {
	Execer
	Getter
	Selecter
}

package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned by lookups when no row matches. Services translate
// it into entity-specific domain errors.
var ErrNotFound = errors.New("not found")

func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

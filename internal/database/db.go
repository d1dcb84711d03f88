package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories care about
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeStringTooLong       = "22001"
)

// MapPostgresError translates driver errors into model sentinels. Conflicts keep the
// violated constraint name so callers can tell a duplicate username from a duplicate email.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		if pgErr.ConstraintName != "" {
			return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
		}
		return models.ErrConflict
	case codeForeignKeyViolation, codeNotNullViolation, codeCheckViolation, codeStringTooLong:
		return fmt.Errorf("%w: %s", models.ErrBadRequest, pgErr.Message)
	}

	return err
}

// WithTransaction runs fn in a transaction, rolling back on error or panic.
// A failed commit is returned to the caller.
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return MapPostgresError(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = MapPostgresError(tx.Commit(ctx))
	}()

	return fn(tx)
}

package database

import (
	"context"
	"errors"
	"strings"

	"github.com/chorely/chorely/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique constraint names from the users migration
const (
	UsersUsernameKey = "users_username_key"
	UsersEmailKey    = "users_email_key"
)

// MapPostgresError translates driver errors into model sentinels.
// Unrecognised errors are returned unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			switch {
			case pgErr.ConstraintName == UsersUsernameKey:
				return models.ErrUsernameExists
			case pgErr.ConstraintName == UsersEmailKey:
				return models.ErrEmailExists
			case strings.Contains(pgErr.ConstraintName, "username"):
				return models.ErrUsernameExists
			case strings.Contains(pgErr.ConstraintName, "email"):
				return models.ErrEmailExists
			}
			return models.ErrConflict
		case pgerrcode.InvalidTextRepresentation:
			// malformed uuid in a lookup: nothing can match it
			return models.ErrNotFound
		case pgerrcode.ForeignKeyViolation, pgerrcode.NotNullViolation, pgerrcode.CheckViolation:
			return models.ErrValidation
		}
	}

	return err
}

// WithTransaction runs fn in a transaction, committing when it returns nil
func (db *DB) WithTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

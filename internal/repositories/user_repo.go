package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/chorely/chorely/internal/database"
	"github.com/chorely/chorely/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// userColumns never includes the password hash; tokens come back in insertion order
const userColumns = `u.id, u.username, u.email,
	ARRAY(SELECT rt.token FROM refresh_tokens rt WHERE rt.user_id = u.id ORDER BY rt.id),
	u.created_at, u.updated_at`

// validID rejects ids that could never match a uuid column
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanUserRow(scanner rowScanner, withPassword bool) (*models.User, error) {
	var user models.User
	dest := []interface{}{&user.ID, &user.Username, &user.Email, &user.RefreshTokens, &user.CreatedAt, &user.UpdatedAt}
	if withPassword {
		dest = append(dest, &user.PasswordHash)
	}

	if err := scanner.Scan(dest...); err != nil {
		return nil, database.MapPostgresError(err)
	}
	if user.RefreshTokens == nil {
		user.RefreshTokens = []string{}
	}

	return &user, nil
}

func (r *UserRepository) getBy(ctx context.Context, column, value string, withPassword bool) (*models.User, error) {
	query := `SELECT ` + userColumns
	if withPassword {
		query += `, u.password_hash`
	}
	query += ` FROM users u WHERE u.` + column + ` = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, value), withPassword)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}
	return r.getBy(ctx, "id", id, false)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email, false)
}

// GetByEmailWithPassword is the only read that loads the password hash
func (r *UserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email, true)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username, false)
}

// Create inserts the user. Unique violations come back as
// models.ErrUsernameExists or models.ErrEmailExists.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	created := &models.User{
		ID:            uuid.New().String(),
		Username:      user.Username,
		Email:         user.Email,
		RefreshTokens: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		created.ID, created.Username, created.Email, user.PasswordHash, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", database.MapPostgresError(err))
	}

	return created, nil
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) AddRefreshToken(ctx context.Context, userID, token string) error {
	query := `INSERT INTO refresh_tokens (token, user_id) VALUES ($1, $2)`

	if _, err := r.pool.Exec(ctx, query, token, userID); err != nil {
		return fmt.Errorf("failed to add refresh token: %w", database.MapPostgresError(err))
	}
	return nil
}

// RotateRefreshToken deletes oldToken and inserts newToken for the same
// owner in one transaction. The DELETE row lock makes a concurrent rotation
// of the same token find nothing.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, oldToken, newToken string) (*models.User, error) {
	var user *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx, `DELETE FROM refresh_tokens WHERE token = $1 RETURNING user_id`, oldToken).Scan(&userID)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO refresh_tokens (token, user_id) VALUES ($1, $2)`, newToken, userID); err != nil {
			return database.MapPostgresError(err)
		}

		query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
		user, err = scanUserRow(tx.QueryRow(ctx, query, userID), false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return user, nil
}

func (r *UserRepository) RemoveRefreshToken(ctx context.Context, token string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		return false, fmt.Errorf("failed to remove refresh token: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected() > 0, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quantumtrust/internal/identity/models"
	"quantumtrust/internal/platform/postgres"
	id "quantumtrust/pkg/domain"
	"quantumtrust/pkg/platform/sentinel"
	txcontext "quantumtrust/pkg/platform/tx"
)

const userColumns = `id, username, email, password, role, country, did, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password, role, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var userID int64
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, string(user.Role),
		nullString(user.Country), user.CreatedAt, user.UpdatedAt,
	).Scan(&userID)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = id.UserID(userID)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, int64(userID))
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) Exists(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	if err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, int64(userID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) UpdateDID(ctx context.Context, userID id.UserID, did string, now time.Time) error {
	query := `UPDATE users SET did = $2, updated_at = $3 WHERE id = $1`
	res, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query, int64(userID), did, now)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("bind did: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("bind did: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind did rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user    models.User
		userID  int64
		role    string
		country sql.NullString
		did     sql.NullString
	)
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, arg).Scan(
		&userID, &user.Username, &user.Email, &user.PasswordHash, &role,
		&country, &did, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.ID = id.UserID(userID)
	user.Role = models.Role(role)
	if country.Valid {
		user.Country = &country.String
	}
	if did.Valid {
		user.DID = &did.String
	}
	return &user, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

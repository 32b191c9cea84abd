package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"quantumtrust/internal/did/models"
	"quantumtrust/internal/platform/postgres"
	id "quantumtrust/pkg/domain"
	"quantumtrust/pkg/platform/sentinel"
	txcontext "quantumtrust/pkg/platform/tx"
)

const recordColumns = `id, did, user_id, public_key, status, created_at, updated_at, expires_at`

// PostgresStore persists DID records in the did table. Writes join the
// transaction carried by the context when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO did (did, user_id, public_key, status, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var recordID int64
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query,
		rec.DID, int64(rec.UserID), rec.PublicKey, string(rec.Status),
		rec.CreatedAt, rec.UpdatedAt, nullTime(rec.ExpiresAt),
	).Scan(&recordID)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err):
			return fmt.Errorf("insert did: %w", sentinel.ErrConflict)
		case postgres.IsForeignKeyViolation(err):
			return fmt.Errorf("insert did: owning user: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert did: %w", err)
	}
	rec.ID = id.DIDRecordID(recordID)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.DIDRecordID) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM did WHERE id = $1`
	return s.findOne(ctx, query, int64(recordID))
}

func (s *PostgresStore) FindByDID(ctx context.Context, did string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM did WHERE did = $1`
	return s.findOne(ctx, query, did)
}

func (s *PostgresStore) FindLiveByUser(ctx context.Context, userID id.UserID) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM did WHERE user_id = $1 AND status = ANY($2)`
	return s.findOne(ctx, query, int64(userID), pq.Array(liveStatuses))
}

// TransitionStatus is a compare-and-swap on the status column. When no row
// matches, a second lookup tells a missing record from a lost race.
func (s *PostgresStore) TransitionStatus(ctx context.Context, recordID id.DIDRecordID, from, to models.Status, now time.Time) (*models.Record, error) {
	query := `
		UPDATE did SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + recordColumns
	rec, err := s.findOne(ctx, query, int64(recordID), string(from), string(to), now)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("transition did status: %w", err)
	}

	var exists bool
	existsQuery := `SELECT EXISTS (SELECT 1 FROM did WHERE id = $1)`
	if err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, existsQuery, int64(recordID)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check did exists: %w", err)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, afterID id.DIDRecordID, limit int) ([]id.DIDRecordID, error) {
	query := `
		SELECT id FROM did
		WHERE status = ANY($1) AND expires_at IS NOT NULL AND expires_at <= $2 AND id > $3
		ORDER BY id
		LIMIT $4
	`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query,
		pq.Array(liveStatuses), now, int64(afterID), limit)
	if err != nil {
		return nil, fmt.Errorf("list due dids: %w", err)
	}
	defer rows.Close()

	var due []id.DIDRecordID
	for rows.Next() {
		var recordID int64
		if err := rows.Scan(&recordID); err != nil {
			return nil, fmt.Errorf("scan due did: %w", err)
		}
		due = append(due, id.DIDRecordID(recordID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due dids: %w", err)
	}
	return due, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM did WHERE user_id = $1 ORDER BY id`
	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("list dids by user: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dids: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Record, error) {
	row := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, args...)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		rec       models.Record
		recordID  int64
		userID    int64
		status    string
		expiresAt sql.NullTime
	)
	err := row.Scan(&recordID, &rec.DID, &userID, &rec.PublicKey, &status,
		&rec.CreatedAt, &rec.UpdatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan did: %w", err)
	}
	rec.ID = id.DIDRecordID(recordID)
	rec.UserID = id.UserID(userID)
	rec.Status = models.Status(status)
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		rec.ExpiresAt = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"quantumtrust/internal/audit/models"
	id "quantumtrust/pkg/domain"
	txcontext "quantumtrust/pkg/platform/tx"
)

// PostgresStore appends to audit_logs. Appends join the caller's transaction
// so an entry commits or rolls back with the mutation it records.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry) error {
	var details []byte
	if len(entry.Details) > 0 {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (user_id, action, resource_type, resource_id, details, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var entryID int64
	err := txcontext.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query,
		nullUserID(entry.UserID),
		string(entry.Action),
		entry.ResourceType,
		entry.ResourceID,
		details,
		sql.NullString{String: entry.IPAddress, Valid: entry.IPAddress != ""},
		entry.CreatedAt,
	).Scan(&entryID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	entry.ID = id.AuditEntryID(entryID)
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter, limit int) ([]models.Entry, error) {
	conds := []string{"id > $1"}
	args := []any{int64(filter.AfterID)}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !filter.UserID.IsNil() {
		add("user_id = $%d", int64(filter.UserID))
	}
	if filter.ResourceType != "" {
		add("resource_type = $%d", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		add("resource_id = $%d", filter.ResourceID)
	}
	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		add("action = ANY($%d)", pq.Array(actions))
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at < $%d", *filter.To)
	}

	query := `
		SELECT id, user_id, action, resource_type, resource_id, details, ip_address, created_at
		FROM audit_logs
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := txcontext.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var (
			e            models.Entry
			entryID      int64
			userID       sql.NullInt64
			action       string
			resourceType sql.NullString
			resourceID   sql.NullString
			details      []byte
			ip           sql.NullString
		)
		if err := rows.Scan(&entryID, &userID, &action, &resourceType, &resourceID, &details, &ip, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = id.AuditEntryID(entryID)
		e.UserID = id.UserID(userID.Int64)
		e.Action = models.Action(action)
		e.ResourceType = resourceType.String
		e.ResourceID = resourceID.String
		e.IPAddress = ip.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}

func nullUserID(userID id.UserID) sql.NullInt64 {
	if userID.IsNil() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(userID), Valid: true}
}

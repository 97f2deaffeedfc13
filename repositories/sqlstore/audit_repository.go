package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends an audit log entry. A zero Timestamp is set to the write time.
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		nullableInt64(log.UserID),
		log.Action,
		log.EntityType,
		nullableInt64(log.EntityID),
		log.Details,
		log.Timestamp,
	).Scan(&log.ID)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.Int64("id", log.ID), zap.String("action", string(log.Action)))
	return nil
}

// ListRecent returns up to limit entries, newest first, with the actor's email
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT a.id, a.user_id, a.action, a.entity_type, a.entity_id,
		       COALESCE(a.details, ''), a.timestamp, u.email
		FROM audit_logs a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.timestamp DESC, a.id DESC
		LIMIT $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		var (
			log       models.AuditLog
			userID    sql.NullInt64
			entityID  sql.NullInt64
			timestamp sql.NullTime
			email     sql.NullString
		)
		err := rows.Scan(
			&log.ID,
			&userID,
			&log.Action,
			&log.EntityType,
			&entityID,
			&log.Details,
			&timestamp,
			&email,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if userID.Valid {
			log.UserID = &userID.Int64
		}
		if entityID.Valid {
			log.EntityID = &entityID.Int64
		}
		if timestamp.Valid {
			log.Timestamp = timestamp.Time
		}
		if email.Valid {
			log.UserEmail = &email.String
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// nullableInt64 converts an optional id into a driver value
func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

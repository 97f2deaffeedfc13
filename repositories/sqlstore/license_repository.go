package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"go.uber.org/zap"
)

// LicenseRepository implements the repositories.LicenseRepository interface
type LicenseRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewLicenseRepository creates a new license repository
func NewLicenseRepository(db *DB, logger *zap.Logger) repositories.LicenseRepository {
	return &LicenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a license
func (r *LicenseRepository) Create(ctx context.Context, license *models.License) error {
	query := `
		INSERT INTO licenses (customer_name, technical_contact, technical_email,
		                      business_contact, business_email, generated_key,
		                      created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		license.CustomerName,
		license.TechnicalContact,
		license.TechnicalEmail,
		license.BusinessContact,
		license.BusinessEmail,
		license.GeneratedKey,
		nullableInt64(license.CreatedBy),
		license.CreatedAt,
	).Scan(&license.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("license key: %w", repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create license: %w", err)
	}

	r.logger.Debug("license created", zap.Int64("id", license.ID))
	return nil
}

// List retrieves all licenses, newest first
func (r *LicenseRepository) List(ctx context.Context) ([]*models.License, error) {
	query := `
		SELECT id, COALESCE(customer_name, ''), COALESCE(technical_contact, ''),
		       COALESCE(technical_email, ''), COALESCE(business_contact, ''),
		       COALESCE(business_email, ''), COALESCE(generated_key, ''),
		       created_by, created_at
		FROM licenses
		ORDER BY created_at DESC, id DESC
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query licenses: %w", err)
	}
	defer rows.Close()

	licenses := make([]*models.License, 0)
	for rows.Next() {
		var (
			l         models.License
			createdBy sql.NullInt64
			createdAt sql.NullTime
		)
		err := rows.Scan(
			&l.ID,
			&l.CustomerName,
			&l.TechnicalContact,
			&l.TechnicalEmail,
			&l.BusinessContact,
			&l.BusinessEmail,
			&l.GeneratedKey,
			&createdBy,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan license: %w", err)
		}
		if createdBy.Valid {
			l.CreatedBy = &createdBy.Int64
		}
		l.CreatedAt = createdAt.Time
		licenses = append(licenses, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating license rows: %w", err)
	}

	return licenses, nil
}

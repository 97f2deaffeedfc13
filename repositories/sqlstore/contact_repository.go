package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"go.uber.org/zap"
)

const contactColumns = `id, COALESCE(firstName, ''), COALESCE(lastName, ''), COALESCE(title, ''),
		COALESCE("function", ''), COALESCE(companyName, ''), COALESCE(workEmail, ''),
		COALESCE(personalEmail, ''), COALESCE(phoneNumber, ''), COALESCE(products, ''),
		COALESCE(escalationContact, 'N'), created_at, updated_at`

// ContactRepository implements the repositories.ContactRepository interface
type ContactRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *DB, logger *zap.Logger) repositories.ContactRepository {
	return &ContactRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var (
		c                models.Contact
		created, updated sql.NullTime
	)
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Title,
		&c.Function,
		&c.CompanyName,
		&c.WorkEmail,
		&c.PersonalEmail,
		&c.PhoneNumber,
		&c.Products,
		&c.EscalationContact,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = created.Time
	c.UpdatedAt = updated.Time
	return &c, nil
}

// Create creates a new contact
func (r *ContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	query := `
		INSERT INTO contacts (firstName, lastName, title, "function", companyName, workEmail,
		                      personalEmail, phoneNumber, products, escalationContact,
		                      created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		contact.FirstName,
		contact.LastName,
		contact.Title,
		contact.Function,
		contact.CompanyName,
		contact.WorkEmail,
		contact.PersonalEmail,
		contact.PhoneNumber,
		contact.Products,
		contact.EscalationContact,
		contact.CreatedAt,
		contact.UpdatedAt,
	).Scan(&contact.ID)

	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	r.logger.Debug("contact created", zap.Int64("id", contact.ID))
	return nil
}

// GetByID retrieves a contact by ID
func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = $1`

	contact, err := scanContact(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

// List retrieves all contacts, newest first
func (r *ContactRepository) List(ctx context.Context) ([]*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts ORDER BY created_at DESC, id DESC`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*models.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact rows: %w", err)
	}

	return contacts, nil
}

// Update applies a partial update and returns the stored contact
func (r *ContactRepository) Update(ctx context.Context, id int64, patch *models.ContactPatch) (*models.Contact, error) {
	query := `
		UPDATE contacts
		SET firstName = COALESCE($1, firstName),
		    lastName = COALESCE($2, lastName),
		    title = COALESCE($3, title),
		    "function" = COALESCE($4, "function"),
		    companyName = COALESCE($5, companyName),
		    workEmail = COALESCE($6, workEmail),
		    personalEmail = COALESCE($7, personalEmail),
		    phoneNumber = COALESCE($8, phoneNumber),
		    products = COALESCE($9, products),
		    escalationContact = COALESCE($10, escalationContact),
		    updated_at = $11
		WHERE id = $12
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		nullableString(patch.FirstName),
		nullableString(patch.LastName),
		nullableString(patch.Title),
		nullableString(patch.Function),
		nullableString(patch.CompanyName),
		nullableString(patch.WorkEmail),
		nullableString(patch.PersonalEmail),
		nullableString(patch.PhoneNumber),
		nullableString(patch.Products),
		nullableString(patch.EscalationContact),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("contact %d: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("contact updated", zap.Int64("id", id))
	return r.GetByID(ctx, id)
}

// Delete deletes a contact
func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("contact %d: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("contact deleted", zap.Int64("id", id))
	return nil
}

// nullableString maps an absent patch field to SQL NULL
func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

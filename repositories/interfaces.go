package repositories

import (
	"context"
	"errors"

	"github.com/upb/contact-directory/models"
)

// Sentinel errors returned by every repository implementation.
// Services translate them into domain errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles credential data operations
type UserRepository interface {
	// Create inserts a user and sets user.ID. Returns ErrDuplicate on an existing email.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByEmail retrieves a user by exact (case-sensitive) email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves all users ordered by ID
	List(ctx context.Context) ([]*models.User, error)

	// Update updates name, role and password credential
	Update(ctx context.Context, user *models.User) error

	// Count returns the number of accounts
	Count(ctx context.Context) (int, error)

	// CountByRole returns the number of accounts holding role
	CountByRole(ctx context.Context, role models.UserRole) (int, error)

	// LockByRole counts the accounts holding role and locks them until the
	// surrounding transaction ends, so a concurrent writer re-reads after commit
	LockByRole(ctx context.Context, role models.UserRole) (int, error)

	// BackfillDefaultRole assigns role to rows that have none and returns how many changed
	BackfillDefaultRole(ctx context.Context, role models.UserRole) (int64, error)
}

// AuditRepository handles audit log data operations. Entries are append-only.
type AuditRepository interface {
	// Insert appends an audit entry and sets log.ID
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListRecent returns the newest entries first, joined with the actor email
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error)
}

// ContactRepository handles contact data operations
type ContactRepository interface {
	// Create inserts a contact and sets contact.ID
	Create(ctx context.Context, contact *models.Contact) error

	// GetByID retrieves a contact by ID
	GetByID(ctx context.Context, id int64) (*models.Contact, error)

	// List retrieves all contacts, newest first
	List(ctx context.Context) ([]*models.Contact, error)

	// Update applies a partial update; absent fields keep their stored values
	Update(ctx context.Context, id int64, patch *models.ContactPatch) (*models.Contact, error)

	// Delete deletes a contact
	Delete(ctx context.Context, id int64) error
}

// LicenseRepository handles license key data operations
type LicenseRepository interface {
	// Create inserts a license and sets license.ID. Returns ErrDuplicate on a key collision.
	Create(ctx context.Context, license *models.License) error

	// List retrieves all licenses, newest first
	List(ctx context.Context) ([]*models.License, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	AuditLogs AuditRepository
	Contacts  ContactRepository
	Licenses  LicenseRepository
}

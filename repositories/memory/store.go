// Package memory provides an in-process implementation of the repositories,
// used to exercise services and routes without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
)

// Store holds every table behind one mutex. txMu serializes transactions.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users    map[int64]*models.User
	audit    []*models.AuditLog
	contacts map[int64]*models.Contact
	licenses []*models.License

	nextUser    int64
	nextAudit   int64
	nextContact int64
	nextLicense int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:    make(map[int64]*models.User),
		contacts: make(map[int64]*models.Contact),
	}
}

// Repositories returns repository views over the store
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:     &userRepo{s},
		AuditLogs: &auditRepo{s},
		Contacts:  &contactRepo{s},
		Licenses:  &licenseRepo{s},
	}
}

// TransactionManager returns a manager whose transactions run one at a time.
// The store has no rollback.
func (s *Store) TransactionManager() repositories.TransactionManager {
	return txManager{s: s}
}

// AuditEntries returns a copy of every recorded audit entry, oldest first
func (s *Store) AuditEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditLog, 0, len(s.audit))
	for _, e := range s.audit {
		out = append(out, *e)
	}
	return out
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Email, repositories.ErrDuplicate)
		}
	}
	r.s.nextUser++
	user.ID = r.s.nextUser
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, repositories.ErrNotFound)
}

func (r *userRepo) List(_ context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[user.ID]
	if !ok {
		return fmt.Errorf("user %d: %w", user.ID, repositories.ErrNotFound)
	}
	u.Name = user.Name
	u.Role = user.Role
	u.PasswordHash = user.PasswordHash
	return nil
}

func (r *userRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

func (r *userRepo) CountByRole(_ context.Context, role models.UserRole) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// LockByRole relies on the transaction manager holding the store's tx lock
func (r *userRepo) LockByRole(ctx context.Context, role models.UserRole) (int, error) {
	return r.CountByRole(ctx, role)
}

func (r *userRepo) BackfillDefaultRole(_ context.Context, role models.UserRole) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.Role == "" {
			u.Role = role
			n++
		}
	}
	return n, nil
}

type auditRepo struct{ s *Store }

func (r *auditRepo) Insert(_ context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	r.s.nextAudit++
	log.ID = r.s.nextAudit
	cp := *log
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *auditRepo) ListRecent(_ context.Context, limit int) ([]*models.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.AuditLog, 0, len(r.s.audit))
	for _, e := range r.s.audit {
		cp := *e
		if cp.UserID != nil {
			if u, ok := r.s.users[*cp.UserID]; ok {
				email := u.Email
				cp.UserEmail = &email
			}
		}
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type contactRepo struct{ s *Store }

func (r *contactRepo) Create(_ context.Context, contact *models.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextContact++
	contact.ID = r.s.nextContact
	cp := *contact
	r.s.contacts[contact.ID] = &cp
	return nil
}

func (r *contactRepo) GetByID(_ context.Context, id int64) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact %d: %w", id, repositories.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (r *contactRepo) List(_ context.Context) ([]*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Contact, 0, len(r.s.contacts))
	for _, c := range r.s.contacts {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *contactRepo) Update(_ context.Context, id int64, patch *models.ContactPatch) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, fmt.Errorf("contact %d: %w", id, repositories.ErrNotFound)
	}
	patch.Apply(c)
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (r *contactRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contacts[id]; !ok {
		return fmt.Errorf("contact %d: %w", id, repositories.ErrNotFound)
	}
	delete(r.s.contacts, id)
	return nil
}

type licenseRepo struct{ s *Store }

func (r *licenseRepo) Create(_ context.Context, license *models.License) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.licenses {
		if l.GeneratedKey == license.GeneratedKey {
			return fmt.Errorf("license key: %w", repositories.ErrDuplicate)
		}
	}
	r.s.nextLicense++
	license.ID = r.s.nextLicense
	cp := *license
	r.s.licenses = append(r.s.licenses, &cp)
	return nil
}

func (r *licenseRepo) List(_ context.Context) ([]*models.License, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.License, 0, len(r.s.licenses))
	for i := len(r.s.licenses) - 1; i >= 0; i-- {
		cp := *r.s.licenses[i]
		out = append(out, &cp)
	}
	return out, nil
}

type txManager struct{ s *Store }

// Begin blocks until no other transaction is open
func (m txManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	m.s.txMu.Lock()
	return &tx{ctx: ctx, release: m.s.txMu.Unlock}, nil
}

func (m txManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	t, _ := m.Begin(ctx)
	defer func() { _ = t.Rollback() }()
	if err := fn(ctx, t); err != nil {
		return err
	}
	return t.Commit()
}

type tx struct {
	ctx     context.Context
	once    sync.Once
	release func()
}

func (t *tx) Commit() error {
	t.once.Do(t.release)
	return nil
}

func (t *tx) Rollback() error {
	t.once.Do(t.release)
	return nil
}

func (t *tx) Context() context.Context { return t.ctx }

// Package contact manages the contact directory records.
package contact

import (
	"context"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"github.com/upb/contact-directory/services"
	"go.uber.org/zap"
)

// Service handles contact business logic
type Service struct {
	contacts repositories.ContactRepository
	logger   *zap.Logger
}

// NewService creates a new contact service
func NewService(contacts repositories.ContactRepository, logger *zap.Logger) *Service {
	return &Service{
		contacts: contacts,
		logger:   logger,
	}
}

// List returns every contact, newest first
func (s *Service) List(ctx context.Context) ([]*models.Contact, error) {
	contacts, err := s.contacts.List(ctx)
	if err != nil {
		return nil, services.FromRepository(err, nil, nil)
	}
	return contacts, nil
}

// Get returns one contact
func (s *Service) Get(ctx context.Context, id int64) (*models.Contact, error) {
	c, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrContactNotFound, nil)
	}
	return c, nil
}

// Create stores a new contact and returns it with its generated id
func (s *Service) Create(ctx context.Context, in *models.ContactInput) (*models.Contact, error) {
	c := in.ToContact()
	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, services.FromRepository(err, nil, nil)
	}
	s.logger.Debug("contact created", zap.Int64("contact_id", c.ID))
	return c, nil
}

// Update applies a partial update. Absent fields keep their stored values.
func (s *Service) Update(ctx context.Context, id int64, patch *models.ContactPatch) (*models.Contact, error) {
	c, err := s.contacts.Update(ctx, id, patch)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrContactNotFound, nil)
	}
	return c, nil
}

// Delete removes a contact
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.contacts.Delete(ctx, id); err != nil {
		return services.FromRepository(err, services.ErrContactNotFound, nil)
	}
	s.logger.Debug("contact deleted", zap.Int64("contact_id", id))
	return nil
}

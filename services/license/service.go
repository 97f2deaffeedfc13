// Package license issues customer license keys.
package license

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"github.com/upb/contact-directory/services"
	"go.uber.org/zap"
)

const (
	keyAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	keyLength   = 13
	maxAttempts = 3
)

// KeyGenerator produces license keys
type KeyGenerator func() (string, error)

// GenerateKey returns the prefix followed by 13 random uppercase base-36 characters
func GenerateKey() (string, error) {
	buf := make([]byte, keyLength)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate license key: %w", err)
		}
		buf[i] = keyAlphabet[n.Int64()]
	}
	return models.LicenseKeyPrefix + string(buf), nil
}

// Service handles license issuance
type Service struct {
	licenses repositories.LicenseRepository
	generate KeyGenerator
	logger   *zap.Logger
}

// NewService creates a new license service. A nil generator uses GenerateKey.
func NewService(licenses repositories.LicenseRepository, generate KeyGenerator, logger *zap.Logger) *Service {
	if generate == nil {
		generate = GenerateKey
	}
	return &Service{
		licenses: licenses,
		generate: generate,
		logger:   logger,
	}
}

// List returns every license, newest first
func (s *Service) List(ctx context.Context) ([]*models.License, error) {
	licenses, err := s.licenses.List(ctx)
	if err != nil {
		return nil, services.FromRepository(err, nil, nil)
	}
	return licenses, nil
}

// Create issues a new license key on behalf of actor
func (s *Service) Create(ctx context.Context, actor *models.Principal, req *models.CreateLicenseRequest) (*models.License, error) {
	l := &models.License{
		CustomerName:     req.CustomerName,
		TechnicalContact: req.TechnicalContact,
		TechnicalEmail:   req.TechnicalEmail,
		BusinessContact:  req.BusinessContact,
		BusinessEmail:    req.BusinessEmail,
		CreatedAt:        time.Now().UTC(),
	}
	if actor != nil {
		id := actor.ID
		l.CreatedBy = &id
	}

	for attempt := 1; ; attempt++ {
		key, err := s.generate()
		if err != nil {
			return nil, services.WrapInternal("failed to generate license key", err)
		}
		l.GeneratedKey = key

		err = s.licenses.Create(ctx, l)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrDuplicate) || attempt == maxAttempts {
			return nil, services.WrapInternal("failed to store license", err)
		}
		s.logger.Warn("license key collision, regenerating", zap.Int("attempt", attempt))
	}

	s.logger.Info("license issued",
		zap.Int64("license_id", l.ID),
		zap.String("customer_name", l.CustomerName))
	return l, nil
}

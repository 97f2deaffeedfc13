// Package auth verifies credentials at login and maintains the bootstrap
// administrator account.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"github.com/upb/contact-directory/services"
	"go.uber.org/zap"
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(p models.Principal) (string, error)
}

// AuditRecorder records completed actions
type AuditRecorder interface {
	Record(actor *models.Principal, action models.AuditAction, entityType string, entityID *int64, details string)
}

// BootstrapConfig describes the default administrator account
type BootstrapConfig struct {
	Email    string
	Password string
	Name     string
}

// Service handles login and bootstrap
type Service struct {
	users     repositories.UserRepository
	txMgr     repositories.TransactionManager
	tokens    TokenIssuer
	audit     AuditRecorder
	bootstrap BootstrapConfig
	cost      int
	logger    *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service
type Option func(*Service)

// WithBcryptCost overrides the bcrypt cost used for new hashes
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// NewService creates a new auth service
func NewService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	tokens TokenIssuer,
	audit AuditRecorder,
	bootstrap BootstrapConfig,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		users:     users,
		txMgr:     txMgr,
		tokens:    tokens,
		audit:     audit,
		bootstrap: bootstrap,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BcryptCost returns the cost used for new hashes
func (s *Service) BcryptCost() int {
	return s.cost
}

// LoginResult is returned on a successful login
type LoginResult struct {
	User        models.PublicUser `json:"user"`
	AccessToken string            `json:"access_token"`
}

// Login verifies credentials and issues a session token.
// Unknown email and wrong password both return services.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, clientIP string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, services.WrapInternal("failed to look up credentials", err)
		}
		// Spend the same bcrypt work as a real comparison
		VerifyPassword(s.dummy(), req.Password)
		s.logger.Debug("login failed", zap.String("reason", "unknown_email"), zap.String("client_ip", clientIP))
		return nil, services.ErrInvalidCredentials
	}

	ok, legacy := VerifyPassword(user.PasswordHash, req.Password)
	if !ok {
		s.logger.Debug("login failed",
			zap.String("reason", "password_mismatch"),
			zap.Int64("user_id", user.ID),
			zap.String("client_ip", clientIP))
		return nil, services.ErrInvalidCredentials
	}

	if legacy {
		s.rehash(ctx, user, req.Password)
	}

	principal := models.PrincipalFor(user)
	accessToken, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, services.WrapInternal("failed to issue token", err)
	}

	s.audit.Record(&principal, models.AuditActionLogin, models.EntityUser, &user.ID, "Login from "+clientIP)

	s.logger.Info("login succeeded",
		zap.Int64("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return &LoginResult{
		User:        user.Public(),
		AccessToken: accessToken,
	}, nil
}

// rehash replaces a plaintext credential with a bcrypt hash. Failures are logged only.
func (s *Service) rehash(ctx context.Context, user *models.User, plain string) {
	hash, err := HashPassword(plain, s.cost)
	if err != nil {
		s.logger.Warn("failed to hash legacy credential", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	updated := *user
	updated.PasswordHash = hash
	if err := s.users.Update(ctx, &updated); err != nil {
		s.logger.Warn("failed to store rehashed credential", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	s.logger.Info("upgraded legacy plaintext credential", zap.Int64("user_id", user.ID))
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword("dummy-password-for-timing", s.cost)
		if err != nil {
			s.logger.Error("failed to build dummy hash", zap.Error(err))
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Bootstrap outcomes
const (
	BootstrapNone     = "none"
	BootstrapPromoted = "promoted"
	BootstrapCreated  = "created"
)

// BootstrapResult describes what Bootstrap changed
type BootstrapResult struct {
	Backfilled int64              `json:"backfilled"`
	Action     string             `json:"action"`
	User       *models.PublicUser `json:"user,omitempty"`
}

// Bootstrap backfills missing roles and guarantees at least one admin account.
// It is idempotent: when an admin already exists nothing else changes.
func (s *Service) Bootstrap(ctx context.Context) (*BootstrapResult, error) {
	result, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*BootstrapResult, error) {
		res := &BootstrapResult{Action: BootstrapNone}

		n, err := s.users.BackfillDefaultRole(ctx, models.DefaultRole)
		if err != nil {
			return nil, err
		}
		res.Backfilled = n

		admins, err := s.users.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return nil, err
		}
		if admins > 0 {
			return res, nil
		}

		existing, err := s.users.GetByEmail(ctx, s.bootstrap.Email)
		switch {
		case err == nil:
			existing.Role = models.RoleAdmin
			if err := s.users.Update(ctx, existing); err != nil {
				return nil, err
			}
			pub := existing.Public()
			res.Action, res.User = BootstrapPromoted, &pub
			return res, nil
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}

		hash, err := HashPassword(s.bootstrap.Password, s.cost)
		if err != nil {
			return nil, err
		}
		admin := models.NewUser(s.bootstrap.Email, hash, s.bootstrap.Name, models.RoleAdmin)
		if err := s.users.Create(ctx, admin); err != nil {
			return nil, err
		}
		pub := admin.Public()
		res.Action, res.User = BootstrapCreated, &pub
		return res, nil
	})
	if err != nil {
		return nil, services.WrapInternal("bootstrap failed", err)
	}

	fields := []zap.Field{zap.String("action", result.Action), zap.Int64("backfilled_roles", result.Backfilled)}
	if result.User != nil {
		fields = append(fields, zap.String("email", result.User.Email))
	}
	s.logger.Info("bootstrap complete", fields...)

	return result, nil
}

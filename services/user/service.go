// Package user manages credential records on behalf of administrators.
package user

import (
	"context"
	"os"

	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/repositories"
	"github.com/upb/contact-directory/services"
	"github.com/upb/contact-directory/services/auth"
	"go.uber.org/zap"
)

// LicenseCheck reports whether a license unlocking multiple accounts is installed
type LicenseCheck func() bool

// LicenseFileCheck returns a LicenseCheck that looks for a file at path
func LicenseFileCheck(path string) LicenseCheck {
	return func() bool {
		if path == "" {
			return false
		}
		info, err := os.Stat(path)
		return err == nil && !info.IsDir()
	}
}

// Service handles user management
type Service struct {
	users      repositories.UserRepository
	txMgr      repositories.TransactionManager
	hasLicense LicenseCheck
	cost       int
	logger     *zap.Logger
}

// NewService creates a new user service. cost is the bcrypt cost; 0 selects the default.
func NewService(
	users repositories.UserRepository,
	txMgr repositories.TransactionManager,
	hasLicense LicenseCheck,
	cost int,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:      users,
		txMgr:      txMgr,
		hasLicense: hasLicense,
		cost:       cost,
		logger:     logger,
	}
}

// List returns every account without credentials
func (s *Service) List(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, services.FromRepository(err, nil, nil)
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Create adds an account. Any account beyond the first requires a license.
func (s *Service) Create(ctx context.Context, req *models.CreateUserRequest) (*models.PublicUser, error) {
	if req.Role != "" && !req.Role.IsValid() {
		return nil, services.ErrInvalidRole
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, services.FromRepository(err, nil, nil)
	}
	if count >= 1 && !s.hasLicense() {
		return nil, services.ErrLicenseRequired
	}

	hash, err := auth.HashPassword(req.Password, s.cost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	u := models.NewUser(req.Email, hash, req.Name, req.Role)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, services.FromRepository(err, nil, services.ErrDuplicateEmail)
	}

	s.logger.Info("user created",
		zap.Int64("user_id", u.ID),
		zap.String("role", string(u.Role)))

	pub := u.Public()
	return &pub, nil
}

// Update changes name, role or password. Demoting the last admin is refused.
// Tokens issued before a role change keep their old role until they expire.
func (s *Service) Update(ctx context.Context, id int64, req *models.UpdateUserRequest) (*models.PublicUser, error) {
	if req.Role != nil && !req.Role.IsValid() {
		return nil, services.ErrInvalidRole
	}

	var hash string
	if req.Password != nil {
		h, err := auth.HashPassword(*req.Password, s.cost)
		if err != nil {
			return nil, services.WrapInternal("failed to hash password", err)
		}
		hash = h
	}

	updated, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.User, error) {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, services.FromRepository(err, services.ErrUserNotFound, nil)
		}

		if req.Role != nil && u.Role == models.RoleAdmin && *req.Role != models.RoleAdmin {
			admins, err := s.users.LockByRole(ctx, models.RoleAdmin)
			if err != nil {
				return nil, services.FromRepository(err, nil, nil)
			}
			if admins <= 1 {
				return nil, services.ErrLastAdmin
			}
		}

		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Role != nil {
			u.Role = *req.Role
		}
		if hash != "" {
			u.PasswordHash = hash
		}

		if err := s.users.Update(ctx, u); err != nil {
			return nil, services.FromRepository(err, services.ErrUserNotFound, nil)
		}
		return u, nil
	})
	if err != nil {
		if services.GetErrorType(err) == "" {
			return nil, services.WrapInternal("failed to update user", err)
		}
		return nil, err
	}

	s.logger.Info("user updated",
		zap.Int64("user_id", updated.ID),
		zap.String("role", string(updated.Role)),
		zap.Bool("password_changed", hash != ""))

	pub := updated.Public()
	return &pub, nil
}

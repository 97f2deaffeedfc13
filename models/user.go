package models

// UserRole represents the role of a user in the directory
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleViewer UserRole = "viewer"
)

// DefaultRole is assigned to accounts created without an explicit role
const DefaultRole = RoleViewer

// IsValid reports whether r is a known role
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// User is a persisted credential record.
// PasswordHash holds either a bcrypt hash or a legacy plaintext value.
type User struct {
	ID           int64    `json:"id" db:"id"`
	Email        string   `json:"email" db:"email"`
	PasswordHash string   `json:"-" db:"password"`
	Name         string   `json:"name" db:"name"`
	Role         UserRole `json:"role" db:"role"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, passwordHash, name string, role UserRole) *User {
	if role == "" {
		role = DefaultRole
	}
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
	}
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicUser is the view of a user returned to clients
type PublicUser struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}

// Public returns the client-facing view of the user
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

// Principal is the authenticated identity attached to a request.
// It is rebuilt from a verified token on every request and never persisted.
type Principal struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	IssuedAt  int64    `json:"iat,omitempty"`
	ExpiresAt int64    `json:"exp,omitempty"`
}

// PrincipalFor builds the token claims for a user
func PrincipalFor(u *User) Principal {
	return Principal{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
}

// HasRole reports whether the principal carries the given role
func (p *Principal) HasRole(role UserRole) bool {
	return p.Role == role
}

// CreateUserRequest is the payload for creating an account
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"required,min=8,max=128"`
	Name     string   `json:"name" validate:"max=255"`
	Role     UserRole `json:"role" validate:"omitempty,oneof=admin viewer"`
}

// UpdateUserRequest is the payload for updating an account; nil fields are left unchanged
type UpdateUserRequest struct {
	Name     *string   `json:"name" validate:"omitempty,max=255"`
	Role     *UserRole `json:"role" validate:"omitempty,oneof=admin viewer"`
	Password *string   `json:"password" validate:"omitempty,min=8,max=128"`
}

// LoginRequest is the payload for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

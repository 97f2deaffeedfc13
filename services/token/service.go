// Package token issues and verifies the signed session tokens carried as
// bearer credentials.
//
// Tokens are stateless: validity depends only on the signature and the
// expiry. The role is a snapshot taken at issuance, so a later role change
// does not affect tokens already handed out.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/services"
)

// Issuer is written to and required in every token
const Issuer = "contact-directory"

// DefaultTTL is the session lifetime used when none is configured
const DefaultTTL = 8 * time.Hour

// Claims represents the claims carried in a session token
type Claims struct {
	jwt.RegisteredClaims
	UserID int64           `json:"id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
}

// Service signs and verifies HS256 session tokens
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used for issuing and verifying
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a token service. An empty secret is a configuration error.
func NewService(secret string, ttl time.Duration, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// TTL returns the lifetime given to issued tokens
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the principal. IssuedAt and ExpiresAt are computed
// here; any values already set on p are ignored.
func (s *Service) Issue(p models.Principal) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and freshness of a token and returns its principal.
// Expired tokens yield services.ErrTokenExpired; every other failure yields
// services.ErrTokenInvalid.
func (s *Service) Verify(tokenString string) (*models.Principal, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.NewDomainError(services.ErrorTypeTokenExpired, services.ErrTokenExpired.Message, err)
		}
		return nil, services.NewDomainError(services.ErrorTypeTokenInvalid, services.ErrTokenInvalid.Message, err)
	}

	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) || !claims.Role.IsValid() {
		return nil, services.NewDomainError(services.ErrorTypeTokenInvalid, services.ErrTokenInvalid.Message,
			errors.New("token identity claims are inconsistent"))
	}

	return &models.Principal{
		ID:        claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

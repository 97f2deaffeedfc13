// Package rbac decides whether an authenticated principal may perform an action.
package rbac

import (
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/services"
)

// Require denies with services.ErrInsufficientPrivilege unless the principal
// holds exactly the given role. Calling it without a principal is a wiring bug
// and panics.
func Require(p *models.Principal, role models.UserRole) error {
	if p == nil {
		panic("rbac: Require called without an authenticated principal")
	}
	if !p.HasRole(role) {
		return services.ErrInsufficientPrivilege.
			WithDetail("required_role", string(role))
	}
	return nil
}

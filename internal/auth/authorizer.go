package auth

import (
	"net/http"

	"github.com/mattjoyce/lingua/internal/fault"
)

// Guarded is anything that declares the permission required to run it.
type Guarded interface {
	RequiredPermission() Permission
}

// Authorizer decides whether a caller may execute a guarded operation.
type Authorizer interface {
	Check(g Guarded, role Role, method string) error
}

// RoleAuthorizer grants access if the caller's role includes the required
// permission and, for mutating permissions, the request arrived via POST.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Check(g Guarded, role Role, method string) error {
	required := g.RequiredPermission()
	if !role.Grants(required) {
		return fault.Forbidden("role %s lacks permission %s", role.Name(), required)
	}
	if required.Mutating() && method != http.MethodPost {
		return fault.Forbidden("permission %s requires POST, got %s", required, method)
	}
	return nil
}

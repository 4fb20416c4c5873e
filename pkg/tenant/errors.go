package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a context does not resolve to an
	// existing, non-deleted organization and user.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidContext is returned when an operation is attempted without
	// an organization scope.
	ErrInvalidContext = errors.New("tenant context requires an organization")

	// ErrUserScopeRequired is returned by user-scoped operations invoked
	// with an organization-only context.
	ErrUserScopeRequired = errors.New("operation requires a user-scoped tenant context")
)

package tenant

// Context carries the tenant scope of a single operation. Every store and
// search call requires one; there is no unscoped code path.
//
// UserID is optional: organization-scoped operations (agents, sandbox
// configs) leave it empty, user-scoped operations (memory records,
// profile settings) must set it.
type Context struct {
	OrganizationID string
	UserID         string
}

// Valid reports whether the context names an organization. A context
// without an organization never passes the isolation guard.
func (c Context) Valid() bool {
	return c.OrganizationID != ""
}

// UserScoped reports whether the context also names a user.
func (c Context) UserScoped() bool {
	return c.UserID != ""
}

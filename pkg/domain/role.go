package domain

import dErrors "renoflow/pkg/domain-errors"

// Role is the closed set of acting identities. Ownership rules dispatch on
// it explicitly: admins bypass company scoping, AMO agents are scoped to
// their company, everything else is refused.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAMO       Role = "amo"
	RoleApplicant Role = "applicant"
)

var validRoles = map[Role]bool{
	RoleAdmin:     true,
	RoleAMO:       true,
	RoleApplicant: true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
	return r, nil
}

func (r Role) IsValid() bool  { return validRoles[r] }
func (r Role) String() string { return string(r) }

// Identity is the opaque "who is calling" input supplied by the session
// provider and consumed by every guard.
type Identity struct {
	UserID UserID
	Role   Role
	// CompanyID is set only for RoleAMO agents; zero means the agent has no
	// configured company and must be refused before any lookup.
	CompanyID CompanyID
}

package auth

import "time"

// Role is an ordinal membership level within an organization. Higher roles
// strictly dominate lower ones for permission checks, so comparisons use the
// numeric value directly.
type Role int

const (
	RoleClient   Role = 1 // Billed customer, read-only on linked resources
	RoleEmployee Role = 2 // Can edit resources in the organization
	RoleAdmin    Role = 3 // Can delete resources in the organization
	RoleOwner    Role = 4 // Full control, including deleting the organization
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleEmployee:
		return "employee"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// Valid reports whether r is a defined role.
func (r Role) Valid() bool {
	return r >= RoleClient && r <= RoleOwner
}

// CanEdit reports whether the role grants edit rights on linked resources.
func (r Role) CanEdit() bool {
	return r > RoleClient
}

// CanDelete reports whether the role grants delete rights on linked resources.
func (r Role) CanDelete() bool {
	return r > RoleEmployee
}

// ParseRole maps a role name to its ordinal value.
func ParseRole(name string) (Role, bool) {
	switch name {
	case "client":
		return RoleClient, true
	case "employee":
		return RoleEmployee, true
	case "admin":
		return RoleAdmin, true
	case "owner":
		return RoleOwner, true
	default:
		return 0, false
	}
}

// User represents a user account. Contact fields are optional; Managed marks
// accounts administered by another entity; SuperAdmin bypasses every
// organization-scoped check.
type User struct {
	ID         string    `json:"id"`
	Email      *string   `json:"email,omitempty"`
	Name       *string   `json:"name,omitempty"`
	Phone      *string   `json:"phone,omitempty"`
	Picture    *string   `json:"picture,omitempty"`
	Managed    bool      `json:"managed"`
	SuperAdmin bool      `json:"superAdmin"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// OrgGrant is the organization slice of a permission snapshot.
type OrgGrant struct {
	ID        string `json:"id"`
	Role      Role   `json:"role,omitempty"`
	HasRole   bool   `json:"hasRole"`
	CanCreate bool   `json:"canCreate"`
}

// ResourceGrant is the invoice/report slice of a permission snapshot.
type ResourceGrant struct {
	ID     string `json:"id"`
	Access bool   `json:"access"`
	Edit   bool   `json:"edit"`
	Delete bool   `json:"delete"`
}

// Snapshot is the request-scoped permission object. Each optional field is
// populated only when the request establishes the corresponding context; see
// pkg/permissions for the presence rules. Snapshots are computed fresh per
// request and never reused.
type Snapshot struct {
	SuperAdmin bool           `json:"superAdmin"`
	Org        *OrgGrant      `json:"org,omitempty"`
	Invoice    *ResourceGrant `json:"invoice,omitempty"`
	Report     *ResourceGrant `json:"report,omitempty"`
}

// CanAccessOrg reports whether the snapshot permits reading the organization.
func (s *Snapshot) CanAccessOrg() bool {
	return s.SuperAdmin || (s.Org != nil && s.Org.HasRole)
}

// CanEditOrg reports whether the snapshot permits updating the organization.
func (s *Snapshot) CanEditOrg() bool {
	return s.SuperAdmin || (s.Org != nil && s.Org.HasRole && s.Org.Role.CanEdit())
}

// CanDeleteOrg reports whether the snapshot permits deleting the organization.
// Organization deletion is reserved for owners.
func (s *Snapshot) CanDeleteOrg() bool {
	return s.SuperAdmin || (s.Org != nil && s.Org.HasRole && s.Org.Role >= RoleOwner)
}

// CanCreateInOrg reports whether the snapshot permits creating resources in
// the organization context.
func (s *Snapshot) CanCreateInOrg() bool {
	return s.SuperAdmin || (s.Org != nil && s.Org.HasRole && s.Org.Role.CanEdit())
}

// AuthContext holds the authenticated user and the derived permission
// snapshot for one request.
type AuthContext struct {
	User     *User
	Snapshot *Snapshot
}

package orgs

import (
	"time"

	"github.com/illustrious/cloud/pkg/auth"
)

// Organization represents a tenant organization
type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contactEmail"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Membership associates a user with an organization and a role
type Membership struct {
	OrgID     string    `json:"orgId"`
	UserID    string    `json:"userId"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateOrgRequest represents request to create an organization
type CreateOrgRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
}

// UpdateOrgRequest represents request to update an organization
type UpdateOrgRequest struct {
	Name         *string `json:"name,omitempty"`
	ContactEmail *string `json:"contactEmail,omitempty"`
}

// AddMemberRequest represents request to add a user to an organization
type AddMemberRequest struct {
	Org  string `json:"org"`
	User string `json:"user"`
	Role string `json:"role"`
}

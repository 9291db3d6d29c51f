package users

import "github.com/illustrious/cloud/pkg/auth"

// User is the canonical user entity shared with the auth package.
type User = auth.User

// CreateUserRequest represents request to create a user
type CreateUserRequest struct {
	Email      *string `json:"email,omitempty"`
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Picture    *string `json:"picture,omitempty"`
	Managed    bool    `json:"managed,omitempty"`
	SuperAdmin bool    `json:"superAdmin,omitempty"`
}

// UpdateUserRequest represents request to update a user's profile
type UpdateUserRequest struct {
	Email   *string `json:"email,omitempty"`
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Picture *string `json:"picture,omitempty"`
}

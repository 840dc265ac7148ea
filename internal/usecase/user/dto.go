package user

import "time"

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name  string `validate:"required"`
	Email string `validate:"required"`
}

// UpdateUserRequest represents the request payload for overwriting an existing user.
type UpdateUserRequest struct {
	ID    string
	Name  string `validate:"required"`
	Email string `validate:"required"`
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID string
}

// DeleteUserResponse confirms a deletion.
type DeleteUserResponse struct {
	ID      string
	Message string
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID string
}

// ListUsersRequest represents the request payload for listing users.
// Zero or negative Page and Limit fall back to their defaults.
type ListUsersRequest struct {
	Search string
	Page   int64
	Limit  int64
}

// ListUsersResponse represents the response payload for user listing.
type ListUsersResponse struct {
	Users      []User
	Pagination Pagination
}

// Pagination represents pagination information for list responses.
type Pagination struct {
	CurrentPage  int64
	TotalPages   int64
	TotalItems   int64
	ItemsPerPage int64
	HasNextPage  bool
	HasPrevPage  bool
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

package user

import "time"

// User represents a user entity in the system.
type User struct {
	ID        string    // ID is the server-generated UUID of the user, immutable after creation
	Name      string    // Name is the full name of the user
	Email     string    // Email is the unique email address of the user
	CreatedAt time.Time // CreatedAt is set by the data store on insert
	UpdatedAt time.Time // UpdatedAt is set by the data store on every write
}

// ListFilter narrows a user listing to one page of rows matching Search.
type ListFilter struct {
	Search string // Case-insensitive substring matched against name or email; empty matches all
	Offset int64
	Limit  int64
}

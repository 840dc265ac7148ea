package user

import "errors"

var (
	// ErrUserNotFound is returned by repositories when no row has the requested id.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned by repositories when a write violates email uniqueness.
	ErrEmailTaken = errors.New("email already exists")
)

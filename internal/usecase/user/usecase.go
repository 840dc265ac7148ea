package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "user-management-api/internal/domain/user"
	apperrors "user-management-api/pkg/errors"
	"user-management-api/pkg/logger"
	"user-management-api/pkg/security"
)

const (
	// DefaultPage is used when no usable page number is supplied.
	DefaultPage int64 = 1
	// DefaultLimit is used when no usable page size is supplied.
	DefaultLimit int64 = 10
	// MaxLimit caps the page size of a single listing.
	MaxLimit int64 = 100

	msgFieldsRequired = "Name and email are required"
	msgEmailTaken     = "Email already exists"
	msgDeleted        = "User was deleted successfully!"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, MySQL, SQLite) to be used interchangeably.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error                                 // Insert a user, filling in id and timestamps
	GetByID(ctx context.Context, id string) (*domain.User, error)                     // Retrieve user by ID
	Update(ctx context.Context, u *domain.User) (int64, error)                        // Overwrite name and email, returns rows affected
	Delete(ctx context.Context, id string) (int64, error)                             // Delete user by ID, returns rows removed
	List(ctx context.Context, filter domain.ListFilter) ([]domain.User, int64, error) // One page of matching users plus the total match count
}

// Interactor implements the business logic for user management operations.
// It holds no state between calls beyond its collaborators.
type Interactor struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

var _ Usecase = (*Interactor)(nil)

// New creates a new Interactor with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Interactor {
	return &Interactor{repo: r, log: log, validate: validator.New()}
}

// CreateUser validates the request and inserts a new user.
func (uc *Interactor) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, apperrors.NewValidationError(firstInvalidField(err), msgFieldsRequired)
	}

	u := &domain.User{Name: in.Name, Email: in.Email}
	if err := uc.repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apperrors.NewConflictError("user", msgEmailTaken)
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, apperrors.NewInternalError("Some error occurred while creating the User.", err)
	}

	return toDTO(u), nil
}

// UpdateUser overwrites name and email of an existing user and returns the stored row.
// Zero affected rows is reported as not found, whatever the cause.
func (uc *Interactor) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("updating user", zap.String("id", in.ID), zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, apperrors.NewValidationError(firstInvalidField(err), msgFieldsRequired)
	}

	notFound := apperrors.NewNotFoundError("user",
		fmt.Sprintf("Cannot update User with id=%s. Maybe User was not found or req.body is empty!", in.ID))
	if !isValidID(in.ID) {
		return nil, notFound
	}

	rows, err := uc.repo.Update(ctx, &domain.User{ID: in.ID, Name: in.Name, Email: in.Email})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, apperrors.NewConflictError("user", msgEmailTaken)
		}
		log.Error("failed to update user", zap.String("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("Error updating User with id=%s", in.ID), err)
	}
	if rows == 0 {
		log.Warn("update affected no rows", zap.String("id", in.ID))
		return nil, notFound
	}

	// The row may be deleted between the write and this read; that surfaces as not found.
	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, notFound
		}
		log.Error("failed to reload updated user", zap.String("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("Error updating User with id=%s", in.ID), err)
	}

	return toDTO(u), nil
}

// DeleteUser removes a user by id.
func (uc *Interactor) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.String("id", in.ID))

	notFound := apperrors.NewNotFoundError("user",
		fmt.Sprintf("Cannot delete User with id=%s. Maybe User was not found!", in.ID))
	if !isValidID(in.ID) {
		return nil, notFound
	}

	rows, err := uc.repo.Delete(ctx, in.ID)
	if err != nil {
		log.Error("failed to delete user", zap.String("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("Could not delete User with id=%s", in.ID), err)
	}
	if rows == 0 {
		return nil, notFound
	}

	return &DeleteUserResponse{ID: in.ID, Message: msgDeleted}, nil
}

// GetUser retrieves a user by id.
func (uc *Interactor) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	notFound := apperrors.NewNotFoundError("user", fmt.Sprintf("User with id=%s not found", in.ID))
	if !isValidID(in.ID) {
		return nil, notFound
	}

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, notFound
		}
		logger.WithContext(ctx, uc.log).Error("failed to get user", zap.String("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Sprintf("Error retrieving User with id=%s", in.ID), err)
	}

	return toDTO(u), nil
}

// ListUsers retrieves a page of users, optionally filtered by a search string,
// together with pagination metadata.
func (uc *Interactor) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if in.Page <= 0 {
		in.Page = DefaultPage
	}
	if in.Limit <= 0 {
		in.Limit = DefaultLimit
	}
	if in.Limit > MaxLimit {
		log.Info("page size capped", zap.Int64("requested_limit", in.Limit), zap.Int64("limit", MaxLimit))
		in.Limit = MaxLimit
	}

	search := security.NormalizeSearchQuery(in.Search)

	log.Info("listing users", zap.String("search", search), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit))

	domainUsers, total, err := uc.repo.List(ctx, domain.ListFilter{
		Search: search,
		Offset: domain.Offset(in.Page, in.Limit),
		Limit:  in.Limit,
	})
	if err != nil {
		log.Error("failed to list users", zap.String("search", search), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit), zap.Error(err))
		return nil, apperrors.NewInternalError("Some error occurred while retrieving users.", err)
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = *toDTO(&domainUsers[i])
	}

	p := domain.NewPagination(total, in.Page, in.Limit)
	return &ListUsersResponse{
		Users: users,
		Pagination: Pagination{
			CurrentPage:  p.CurrentPage,
			TotalPages:   p.TotalPages,
			TotalItems:   p.TotalItems,
			ItemsPerPage: p.ItemsPerPage,
			HasNextPage:  p.HasNextPage,
			HasPrevPage:  p.HasPrevPage,
		},
	}, nil
}

// isValidID reports whether id could name a stored user at all.
func isValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// firstInvalidField returns the name of the first field that failed validation.
func firstInvalidField(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return validationErrors[0].Field()
	}
	return ""
}

func toDTO(u *domain.User) *User {
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

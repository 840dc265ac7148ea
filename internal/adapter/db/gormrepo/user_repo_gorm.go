package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-management-api/internal/domain/user"
	"user-management-api/pkg/logger"
	"user-management-api/pkg/security"
)

// UserRepoGorm implements the user Repository interface on top of GORM.
// It works against any dialect opened by the caller (postgres, mysql, sqlite).
type UserRepoGorm struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoGorm creates a new instance of UserRepoGorm.
func NewUserRepoGorm(db *gorm.DB, log *zap.Logger) *UserRepoGorm {
	return &UserRepoGorm{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        string    `gorm:"primaryKey;size:36"`             // Random UUID assigned in BeforeCreate
	Name      string    `gorm:"size:255;not null"`              // User's full name (required)
	Email     string    `gorm:"size:255;not null;uniqueIndex"`  // User's unique email address
	SearchKey string    `gorm:"type:text;not null;default:''"` // Lower-cased name and email matched by List
	CreatedAt time.Time `gorm:"not null"`                       // Maintained by GORM on insert
	UpdatedAt time.Time `gorm:"not null"`                       // Maintained by GORM on every write
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// BeforeCreate assigns a fresh id unless the caller already supplied one.
func (s *UserSchema) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps SearchKey in step with Name and Email.
func (s *UserSchema) BeforeSave(*gorm.DB) error {
	s.SearchKey = searchKey(s.Name, s.Email)
	return nil
}

// searchKeySeparator sits between name and email so a search cannot match across them
// unless it contains the separator itself.
const searchKeySeparator = "\x1f"

// searchKey folds case in Go so matching does not depend on the dialect's LOWER,
// which on sqlite only folds ASCII.
func searchKey(name, email string) string {
	return strings.ToLower(name + searchKeySeparator + email)
}

func (s *UserSchema) toDomain() *user.User {
	return &user.User{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// AutoMigrate creates or updates the users table and fills in the search key
// of rows written before the column existed.
func (r *UserRepoGorm) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	if err := r.backfillSearchKeys(ctx); err != nil {
		return fmt.Errorf("failed to backfill search keys: %w", err)
	}
	return nil
}

func (r *UserRepoGorm) backfillSearchKeys(ctx context.Context) error {
	var models []UserSchema
	var filled int64
	result := r.db.WithContext(ctx).
		Where("search_key = ?", "").
		FindInBatches(&models, 500, func(*gorm.DB, int) error {
			for i := range models {
				err := r.db.WithContext(ctx).Model(&UserSchema{}).
					Where("id = ?", models[i].ID).
					Update("search_key", searchKey(models[i].Name, models[i].Email)).Error
				if err != nil {
					return err
				}
			}
			filled += int64(len(models))
			return nil
		})
	if result.Error != nil {
		return result.Error
	}
	if filled > 0 {
		logger.WithContext(ctx, r.log).Info("search keys backfilled", zap.Int64("rows", filled))
	}
	return nil
}

// Create inserts a new user and fills in the generated id and timestamps.
func (r *UserRepoGorm) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}

	log := logger.WithContext(ctx, r.log)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			log.Warn("email already exists", zap.String("email", u.Email))
			return user.ErrEmailTaken
		}
		log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}

	*u = *model.toDomain()
	log.Info("user created in db", zap.String("id", model.ID))
	return nil
}

// Update overwrites name and email of the row with u.ID.
// It returns the number of rows the data store reports as affected.
func (r *UserRepoGorm) Update(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	log := logger.WithContext(ctx, r.log)
	result := r.db.WithContext(ctx).
		Model(&UserSchema{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"name":       u.Name,
			"email":      u.Email,
			"search_key": searchKey(u.Name, u.Email),
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			log.Warn("email already exists", zap.String("email", u.Email), zap.String("id", u.ID))
			return 0, user.ErrEmailTaken
		}
		log.Error("failed to update user in db", zap.Error(result.Error), zap.String("id", u.ID))
		return 0, fmt.Errorf("failed to update user: %w", result.Error)
	}

	log.Info("user updated in db", zap.String("id", u.ID), zap.Int64("rows", result.RowsAffected))
	return result.RowsAffected, nil
}

// Delete removes a user by ID and returns the number of rows removed.
func (r *UserRepoGorm) Delete(ctx context.Context, id string) (int64, error) {
	log := logger.WithContext(ctx, r.log)
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserSchema{})
	if result.Error != nil {
		log.Error("failed to delete user in db", zap.Error(result.Error), zap.String("id", id))
		return 0, fmt.Errorf("failed to delete user: %w", result.Error)
	}

	log.Info("user deleted in db", zap.String("id", id), zap.Int64("rows", result.RowsAffected))
	return result.RowsAffected, nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoGorm) GetByID(ctx context.Context, id string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithContext(ctx, r.log).Debug("user not found", zap.String("id", id))
			return nil, user.ErrUserNotFound
		}
		logger.WithContext(ctx, r.log).Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return model.toDomain(), nil
}

// List returns one page of users matching the filter, ordered by id,
// together with the total number of matching rows.
func (r *UserRepoGorm) List(ctx context.Context, filter user.ListFilter) ([]user.User, int64, error) {
	log := logger.WithContext(ctx, r.log)
	scope := searchScope(filter.Search)

	var total int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Scopes(scope).Count(&total).Error; err != nil {
		log.Error("failed to count users in db", zap.Error(err), zap.String("search", filter.Search))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var models []UserSchema
	err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("id ASC").
		Offset(int(filter.Offset)).
		Limit(int(filter.Limit)).
		Find(&models).Error
	if err != nil {
		log.Error("failed to list users from db", zap.Error(err),
			zap.String("search", filter.Search), zap.Int64("offset", filter.Offset), zap.Int64("limit", filter.Limit))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = *models[i].toDomain()
	}

	return users, total, nil
}

// searchScope matches name or email containing search, ignoring case.
// Both the stored key and the pattern are folded in Go, and LIKE with an explicit
// escape character behaves the same on every dialect.
func searchScope(search string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if search == "" {
			return tx
		}
		return tx.Where(
			"search_key LIKE ? ESCAPE '"+security.LikeEscapeChar+"'",
			security.ContainsPattern(search),
		)
	}
}

// isUniqueViolation reports whether err came from a unique constraint.
// TranslateError covers postgres and mysql; sqlite drivers only expose the message.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

package gormrepo

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"user-management-api/pkg/logger"
)

// DemoUsers are the rows inserted by SeedDemoUsers.
var DemoUsers = []struct {
	Name  string
	Email string
}{
	{Name: "John Doe", Email: "john@example.com"},
	{Name: "Jane Smith", Email: "jane@example.com"},
}

// SeedDemoUsers inserts the demo users, skipping emails that already exist.
// It returns the number of rows inserted.
func (r *UserRepoGorm) SeedDemoUsers(ctx context.Context) (int64, error) {
	models := make([]UserSchema, len(DemoUsers))
	for i, u := range DemoUsers {
		models[i] = UserSchema{Name: u.Name, Email: u.Email}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&models)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed users: %w", result.Error)
	}

	logger.WithContext(ctx, r.log).Info("demo users seeded", zap.Int64("inserted", result.RowsAffected))
	return result.RowsAffected, nil
}

package gormrepo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"user-management-api/internal/domain/user"
	"user-management-api/pkg/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	// Every pooled connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	// Migrate the schema
	err = db.AutoMigrate(&UserSchema{})
	require.NoError(t, err)

	return db
}

func setupTestRepo(t *testing.T) *UserRepoGorm {
	return NewUserRepoGorm(setupTestDB(t), zaptest.NewLogger(t))
}

func createUsers(t *testing.T, repo *UserRepoGorm, users ...user.User) []user.User {
	created := make([]user.User, 0, len(users))
	for _, u := range users {
		u := u
		require.NoError(t, repo.Create(context.Background(), &u))
		created = append(created, u)
	}
	return created
}

func TestUserRepoGorm_Create(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	u := &user.User{Name: "John Doe", Email: "john@example.com"}
	require.NoError(t, repo.Create(ctx, u))

	_, err := uuid.Parse(u.ID)
	assert.NoError(t, err, "id should be a UUID")
	assert.False(t, u.CreatedAt.IsZero())
	assert.False(t, u.UpdatedAt.IsZero())

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", got.Name)
	assert.Equal(t, "john@example.com", got.Email)
}

func TestUserRepoGorm_Create_DuplicateEmail(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	createUsers(t, repo, user.User{Name: "John Doe", Email: "john@example.com"})

	err := repo.Create(ctx, &user.User{Name: "Someone Else", Email: "john@example.com"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	_, total, err := repo.List(ctx, user.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestUserRepoGorm_Create_NilUser(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Create(context.Background(), nil)
	assert.Error(t, err)
}

func TestUserRepoGorm_GetByID_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	assert.Nil(t, got)
}

func TestUserRepoGorm_Update(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created := createUsers(t, repo,
		user.User{Name: "John Doe", Email: "john@example.com"},
		user.User{Name: "Jane Smith", Email: "jane@example.com"},
	)
	target := created[0]

	// Make sure the write lands on a later timestamp
	time.Sleep(5 * time.Millisecond)

	rows, err := repo.Update(ctx, &user.User{ID: target.ID, Name: "New Name", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := repo.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "new@example.com", got.Email)
	assert.True(t, got.UpdatedAt.After(target.UpdatedAt))

	other, err := repo.GetByID(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", other.Name)
	assert.Equal(t, "jane@example.com", other.Email)

	// Search follows the new values
	_, total, err := repo.List(ctx, user.ListFilter{Search: "NEW NAME", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	_, total, err = repo.List(ctx, user.ListFilter{Search: "john", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserRepoGorm_Update_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	rows, err := repo.Update(context.Background(), &user.User{ID: uuid.NewString(), Name: "Ghost", Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestUserRepoGorm_Update_DuplicateEmail(t *testing.T) {
	repo := setupTestRepo(t)

	created := createUsers(t, repo,
		user.User{Name: "John Doe", Email: "john@example.com"},
		user.User{Name: "Jane Smith", Email: "jane@example.com"},
	)

	_, err := repo.Update(context.Background(), &user.User{ID: created[0].ID, Name: "John Doe", Email: "jane@example.com"})
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestUserRepoGorm_Delete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	created := createUsers(t, repo, user.User{Name: "John Doe", Email: "john@example.com"})

	rows, err := repo.Delete(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	_, err = repo.GetByID(ctx, created[0].ID)
	assert.ErrorIs(t, err, user.ErrUserNotFound)

	rows, err = repo.Delete(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestUserRepoGorm_List_Search(t *testing.T) {
	repo := setupTestRepo(t)

	createUsers(t, repo,
		user.User{Name: "John Doe", Email: "JOHN@EXAMPLE.COM"},
		user.User{Name: "jane smith", Email: "jane@example.com"},
		user.User{Name: "ADMIN User", Email: "root@example.org"},
		user.User{Name: "Mary Jane Watson", Email: "mj@example.net"},
		user.User{Name: "Émile Zola", Email: "emile@zola.fr"},
		user.User{Name: "ÖZIL", Email: "mesut@arsenal.co.uk"},
	)

	tests := []struct {
		name        string
		search      string
		expectCount int
	}{
		{name: "empty search matches all", search: "", expectCount: 6},
		{name: "lowercase search", search: "john", expectCount: 1},
		{name: "uppercase search", search: "JOHN", expectCount: 1},
		{name: "substring in the middle of name", search: "jane", expectCount: 2},
		{name: "mixed case search", search: "Admin", expectCount: 1},
		{name: "email domain", search: "example.com", expectCount: 2},
		{name: "sql keywords are literal", search: "john OR 1=1", expectCount: 0},
		{name: "no match", search: "nobody", expectCount: 0},
		{name: "non ascii lowercase", search: "émile", expectCount: 1},
		{name: "non ascii uppercase", search: "ÉMILE", expectCount: 1},
		{name: "non ascii against uppercase name", search: "özil", expectCount: 1},
		{name: "non ascii mixed case", search: "Öz", expectCount: 1},
		{name: "name and email are not joined", search: "doejohn", expectCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, total, err := repo.List(context.Background(), user.ListFilter{Search: tt.search, Limit: 10})
			require.NoError(t, err)
			assert.Len(t, users, tt.expectCount)
			assert.Equal(t, int64(tt.expectCount), total)
		})
	}
}

func TestUserRepoGorm_List_WildcardEscaping(t *testing.T) {
	repo := setupTestRepo(t)

	// Insert test data with special characters
	createUsers(t, repo,
		user.User{Name: "John%Test", Email: "john.pct@example.com"},
		user.User{Name: "Jane_Test", Email: "jane.us@example.com"},
		user.User{Name: "Bang!Test", Email: "bang@example.com"},
		user.User{Name: "JohnXTest", Email: "johnx@example.com"},
		user.User{Name: "JaneYTest", Email: "janey@example.com"},
	)

	tests := []struct {
		name        string
		search      string
		expectCount int
	}{
		{name: "percent literal", search: "John%Test", expectCount: 1},
		{name: "underscore literal", search: "Jane_Test", expectCount: 1},
		{name: "escape character literal", search: "g!t", expectCount: 1},
		{name: "lone percent", search: "%", expectCount: 1},
		{name: "lone underscore", search: "_", expectCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, _, err := repo.List(context.Background(), user.ListFilter{Search: tt.search, Limit: 10})
			require.NoError(t, err)
			assert.Len(t, users, tt.expectCount)
		})
	}
}

func TestUserRepoGorm_List_PaginationCoversAllRows(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		createUsers(t, repo, user.User{Name: fmt.Sprintf("User %d", i), Email: fmt.Sprintf("user%d@example.com", i)})
	}

	const limit = 3
	seen := map[string]bool{}
	var lastID string
	var sum int
	for offset := int64(0); ; offset += limit {
		users, total, err := repo.List(ctx, user.ListFilter{Offset: offset, Limit: limit})
		require.NoError(t, err)
		assert.Equal(t, int64(7), total)
		if len(users) == 0 {
			break
		}
		assert.LessOrEqual(t, len(users), limit)
		for _, u := range users {
			assert.False(t, seen[u.ID], "user %s returned twice", u.ID)
			seen[u.ID] = true
			assert.Greater(t, u.ID, lastID, "rows must be ordered by id")
			lastID = u.ID
		}
		sum += len(users)
	}

	assert.Equal(t, 7, sum)
}

func TestUserRepoGorm_SeedDemoUsers(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	inserted, err := repo.SeedDemoUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	// Seeding again keeps the table unchanged
	_, err = repo.SeedDemoUsers(ctx)
	require.NoError(t, err)

	users, total, err := repo.List(ctx, user.ListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, u := range users {
		_, err := uuid.Parse(u.ID)
		assert.NoError(t, err)
	}
}

func TestUserRepoGorm_AutoMigrate_BackfillsSearchKeys(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	// A row written before the search key column existed
	now := time.Now()
	err := repo.db.Exec(
		"INSERT INTO users (id, name, email, search_key, created_at, updated_at) VALUES (?, ?, ?, '', ?, ?)",
		uuid.NewString(), "Ærø Legacy", "legacy@example.com", now, now,
	).Error
	require.NoError(t, err)

	_, total, err := repo.List(ctx, user.ListFilter{Search: "ærø", Limit: 10})
	require.NoError(t, err)
	require.Zero(t, total)

	require.NoError(t, repo.AutoMigrate(ctx))

	users, total, err := repo.List(ctx, user.ListFilter{Search: "ÆRØ", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "legacy@example.com", users[0].Email)

	// Running it again finds nothing left to fill
	require.NoError(t, repo.AutoMigrate(ctx))
}

func TestUserRepoGorm_SeedDemoUsers_LogsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := NewUserRepoGorm(setupTestDB(t), zap.New(core))
	ctx := logger.ContextWithRequestID(context.Background(), "req-seed")

	_, err := repo.SeedDemoUsers(ctx)
	require.NoError(t, err)

	entries := logs.FilterMessage("demo users seeded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-seed", entries[0].ContextMap()["request_id"])
}

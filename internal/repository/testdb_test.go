package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/accesskit/rolemanager/internal/db/bunx"
	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/migrations"
)

// setupTestDB opens an in-memory SQLite database with the full schema applied.
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := bunx.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func createTestUser(t *testing.T, repo UserRepository, login string) *models.User {
	t.Helper()

	user := &models.User{
		Login:        login,
		Email:        login + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func createTestGroup(t *testing.T, repo GroupRepository, name string) *models.Group {
	t.Helper()

	group := &models.Group{Name: name}
	require.NoError(t, repo.Create(context.Background(), group))
	return group
}

func createTestRole(t *testing.T, repo RoleRepository, name string) *models.Role {
	t.Helper()

	role := &models.Role{Name: name}
	require.NoError(t, repo.Create(context.Background(), role))
	return role
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[0:8]
}

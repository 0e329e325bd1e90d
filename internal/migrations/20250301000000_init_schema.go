package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20250301000000, down_20250301000000)
}

// up_20250301000000 creates the role_manager_* schema and seeds the
// permissions version counter.
//
// Foreign keys follow the protection policy: memberships and subgroup edges
// cascade away with their endpoints, while assignments restrict deletion of
// the roles, contexts, users and groups they reference.
func up_20250301000000(ctx context.Context, db *bun.DB) error {
	type tableSpec struct {
		model       any
		foreignKeys []string
	}

	tables := []tableSpec{
		{model: (*models.User)(nil)},
		{model: (*models.Group)(nil)},
		{
			model: (*models.UserGroup)(nil),
			foreignKeys: []string{
				`("user_id") REFERENCES "role_manager_users" ("id") ON DELETE CASCADE`,
				`("group_id") REFERENCES "role_manager_groups" ("id") ON DELETE CASCADE`,
			},
		},
		{
			model: (*models.GroupSubgroup)(nil),
			foreignKeys: []string{
				`("parent_group_id") REFERENCES "role_manager_groups" ("id") ON DELETE CASCADE`,
				`("child_group_id") REFERENCES "role_manager_groups" ("id") ON DELETE CASCADE`,
			},
		},
		{model: (*models.RightGroup)(nil)},
		{model: (*models.RightRange)(nil)},
		{
			model: (*models.Right)(nil),
			foreignKeys: []string{
				`("rightgroup_id") REFERENCES "role_manager_rightgroups" ("id") ON DELETE RESTRICT`,
				`("righttype_range_id") REFERENCES "role_manager_righttype_ranges" ("id") ON DELETE RESTRICT`,
			},
		},
		{model: (*models.Role)(nil)},
		{
			model: (*models.RoleRight)(nil),
			foreignKeys: []string{
				`("role_id") REFERENCES "role_manager_roles" ("id") ON DELETE CASCADE`,
				`("right_id") REFERENCES "role_manager_rights" ("id") ON DELETE RESTRICT`,
			},
		},
		{model: (*models.Context)(nil)},
		{
			model: (*models.UserContextRole)(nil),
			foreignKeys: []string{
				`("user_id") REFERENCES "role_manager_users" ("id") ON DELETE RESTRICT`,
				`("context_id") REFERENCES "role_manager_contexts" ("id") ON DELETE RESTRICT`,
				`("role_id") REFERENCES "role_manager_roles" ("id") ON DELETE RESTRICT`,
			},
		},
		{
			model: (*models.GroupContextRole)(nil),
			foreignKeys: []string{
				`("group_id") REFERENCES "role_manager_groups" ("id") ON DELETE RESTRICT`,
				`("context_id") REFERENCES "role_manager_contexts" ("id") ON DELETE RESTRICT`,
				`("role_id") REFERENCES "role_manager_roles" ("id") ON DELETE RESTRICT`,
			},
		},
		{model: (*models.LogEntry)(nil)},
		{model: (*models.ConfigEntry)(nil)},
	}

	for _, spec := range tables {
		q := db.NewCreateTable().
			Model(spec.model).
			IfNotExists()
		for _, fk := range spec.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", spec.model, err)
		}
	}

	// Assignments are sets: one row per (subject, context, role). NULL context
	// ids compare unequal under a plain unique constraint, so the global rows
	// need their own partial index.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_rm_ucr_scoped ON role_manager_user_context_roles(user_id, context_id, role_id) WHERE context_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_rm_ucr_global ON role_manager_user_context_roles(user_id, role_id) WHERE context_id IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_rm_gcr_scoped ON role_manager_group_context_roles(group_id, context_id, role_id) WHERE context_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_rm_gcr_global ON role_manager_group_context_roles(group_id, role_id) WHERE context_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_rm_user_groups_group ON role_manager_user_groups(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rm_group_subgroups_child ON role_manager_group_subgroups(child_group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rm_role_rights_right ON role_manager_role_rights(right_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rm_ucr_user ON role_manager_user_context_roles(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rm_ucr_role ON role_manager_user_context_roles(role_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rm_gcr_group ON role_manager_group_context_roles(group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rm_gcr_role ON role_manager_group_context_roles(role_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rm_logs_level ON role_manager_logs(level)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Seed the version counter. The row must exist before any resolver read.
	seed := &models.ConfigEntry{Key: models.PermissionsVersionKey, Value: 1}
	_, err := db.NewInsert().
		Model(seed).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed permissions version: %w", err)
	}

	return nil
}

// down_20250301000000 drops the schema in dependency order
func down_20250301000000(ctx context.Context, db *bun.DB) error {
	drops := []any{
		(*models.ConfigEntry)(nil),
		(*models.LogEntry)(nil),
		(*models.GroupContextRole)(nil),
		(*models.UserContextRole)(nil),
		(*models.Context)(nil),
		(*models.RoleRight)(nil),
		(*models.Role)(nil),
		(*models.Right)(nil),
		(*models.RightRange)(nil),
		(*models.RightGroup)(nil),
		(*models.GroupSubgroup)(nil),
		(*models.UserGroup)(nil),
		(*models.Group)(nil),
		(*models.User)(nil),
	}
	for _, model := range drops {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", model, err)
		}
	}
	return nil
}

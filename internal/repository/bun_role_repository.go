package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db bun.IDB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db bun.IDB) RoleRepository {
	return &BunRoleRepository{db: db}
}

// Create inserts a new role
func (r *BunRoleRepository) Create(ctx context.Context, role *models.Role) error {
	_, err := r.db.NewInsert().
		Model(role).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *BunRoleRepository) GetByID(ctx context.Context, id int64) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// GetByName retrieves a role by name
func (r *BunRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return role, nil
}

// List retrieves all roles ordered by name
func (r *BunRoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// Update updates an existing role
func (r *BunRoleRepository) Update(ctx context.Context, role *models.Role) error {
	result, err := r.db.NewUpdate().
		Model(role).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("role %d", role.ID))
}

// Delete deletes a role by ID
func (r *BunRoleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.Role)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("role %d", id))
}

// InUse reports whether any user or group assignment references the role
func (r *BunRoleRepository) InUse(ctx context.Context, roleID int64) (bool, error) {
	users, err := r.db.NewSelect().
		Model((*models.UserContextRole)(nil)).
		Where("role_id = ?", roleID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check role user assignments: %w", err)
	}
	if users {
		return true, nil
	}

	groups, err := r.db.NewSelect().
		Model((*models.GroupContextRole)(nil)).
		Where("role_id = ?", roleID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check role group assignments: %w", err)
	}
	return groups, nil
}

// AddRight attaches a right to a role
func (r *BunRoleRepository) AddRight(ctx context.Context, rr *models.RoleRight) error {
	_, err := r.db.NewInsert().
		Model(rr).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add right to role: %w", err)
	}
	return nil
}

// RemoveRight detaches a right from a role. Returns false if the link did not exist.
func (r *BunRoleRepository) RemoveRight(ctx context.Context, roleID, rightID int64) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*models.RoleRight)(nil)).
		Where("role_id = ?", roleID).
		Where("right_id = ?", rightID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("remove right from role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Rights lists the role-right links for a role
func (r *BunRoleRepository) Rights(ctx context.Context, roleID int64) ([]models.RoleRight, error) {
	var rights []models.RoleRight
	err := r.db.NewSelect().
		Model(&rights).
		Where("role_id = ?", roleID).
		Order("right_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role rights: %w", err)
	}
	return rights, nil
}

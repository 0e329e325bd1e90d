package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// BunContextRepository implements ContextRepository using Bun ORM
type BunContextRepository struct {
	db bun.IDB
}

// NewBunContextRepository creates a new Bun-based context repository
func NewBunContextRepository(db bun.IDB) ContextRepository {
	return &BunContextRepository{db: db}
}

// Create inserts a new context
func (r *BunContextRepository) Create(ctx context.Context, c *models.Context) error {
	_, err := r.db.NewInsert().
		Model(c).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	return nil
}

// GetByID retrieves a context by ID
func (r *BunContextRepository) GetByID(ctx context.Context, id int64) (*models.Context, error) {
	c := new(models.Context)
	err := r.db.NewSelect().
		Model(c).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("context %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get context: %w", err)
	}
	return c, nil
}

// GetByName retrieves a context by name
func (r *BunContextRepository) GetByName(ctx context.Context, name string) (*models.Context, error) {
	c := new(models.Context)
	err := r.db.NewSelect().
		Model(c).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("context %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get context by name: %w", err)
	}
	return c, nil
}

// List retrieves all contexts ordered by name
func (r *BunContextRepository) List(ctx context.Context) ([]models.Context, error) {
	var contexts []models.Context
	err := r.db.NewSelect().
		Model(&contexts).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	return contexts, nil
}

// Update updates an existing context
func (r *BunContextRepository) Update(ctx context.Context, c *models.Context) error {
	result, err := r.db.NewUpdate().
		Model(c).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update context: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("context %d", c.ID))
}

// Delete deletes a context by ID
func (r *BunContextRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.Context)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete context: %w", err)
	}
	return requireAffected(result, fmt.Sprintf("context %d", id))
}

// InUse reports whether any assignment references the context
func (r *BunContextRepository) InUse(ctx context.Context, contextID int64) (bool, error) {
	users, err := r.db.NewSelect().
		Model((*models.UserContextRole)(nil)).
		Where("context_id = ?", contextID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check context user assignments: %w", err)
	}
	if users {
		return true, nil
	}

	groups, err := r.db.NewSelect().
		Model((*models.GroupContextRole)(nil)).
		Where("context_id = ?", contextID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check context group assignments: %w", err)
	}
	return groups, nil
}

// AssignUserRole inserts a user-context-role assignment
func (r *BunContextRepository) AssignUserRole(ctx context.Context, a *models.UserContextRole) error {
	_, err := r.db.NewInsert().
		Model(a).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign user role: %w", err)
	}
	return nil
}

// UnassignUserRole deletes a user-context-role assignment. Returns false if
// the assignment did not exist.
func (r *BunContextRepository) UnassignUserRole(ctx context.Context, userID int64, contextID *int64, roleID int64) (bool, error) {
	q := r.db.NewDelete().
		Model((*models.UserContextRole)(nil)).
		Where("user_id = ?", userID).
		Where("role_id = ?", roleID)
	q = whereContext(q, contextID)

	result, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("unassign user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// UserAssignmentExists checks for a duplicate user-context-role assignment
func (r *BunContextRepository) UserAssignmentExists(ctx context.Context, userID int64, contextID *int64, roleID int64) (bool, error) {
	q := r.db.NewSelect().
		Model((*models.UserContextRole)(nil)).
		Where("user_id = ?", userID).
		Where("role_id = ?", roleID)
	q = whereContextSelect(q, contextID)

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check user assignment: %w", err)
	}
	return exists, nil
}

// AssignGroupRole inserts a group-context-role assignment
func (r *BunContextRepository) AssignGroupRole(ctx context.Context, a *models.GroupContextRole) error {
	_, err := r.db.NewInsert().
		Model(a).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign group role: %w", err)
	}
	return nil
}

// UnassignGroupRole deletes a group-context-role assignment. Returns false if
// the assignment did not exist.
func (r *BunContextRepository) UnassignGroupRole(ctx context.Context, groupID int64, contextID *int64, roleID int64) (bool, error) {
	q := r.db.NewDelete().
		Model((*models.GroupContextRole)(nil)).
		Where("group_id = ?", groupID).
		Where("role_id = ?", roleID)
	q = whereContext(q, contextID)

	result, err := q.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("unassign group role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// GroupAssignmentExists checks for a duplicate group-context-role assignment
func (r *BunContextRepository) GroupAssignmentExists(ctx context.Context, groupID int64, contextID *int64, roleID int64) (bool, error) {
	q := r.db.NewSelect().
		Model((*models.GroupContextRole)(nil)).
		Where("group_id = ?", groupID).
		Where("role_id = ?", roleID)
	q = whereContextSelect(q, contextID)

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check group assignment: %w", err)
	}
	return exists, nil
}

// whereContext adds the NULL-aware context predicate to a delete query.
func whereContext(q *bun.DeleteQuery, contextID *int64) *bun.DeleteQuery {
	if contextID == nil {
		return q.Where("context_id IS NULL")
	}
	return q.Where("context_id = ?", *contextID)
}

// whereContextSelect adds the NULL-aware context predicate to a select query.
func whereContextSelect(q *bun.SelectQuery, contextID *int64) *bun.SelectQuery {
	if contextID == nil {
		return q.Where("context_id IS NULL")
	}
	return q.Where("context_id = ?", *contextID)
}

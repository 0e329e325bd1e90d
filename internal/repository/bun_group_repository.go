package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// BunGroupRepository implements GroupRepository using Bun ORM
type BunGroupRepository struct {
	db bun.IDB
}

// NewBunGroupRepository creates a new Bun-based group repository
func NewBunGroupRepository(db bun.IDB) GroupRepository {
	return &BunGroupRepository{db: db}
}

// Create inserts a new group
func (r *BunGroupRepository) Create(ctx context.Context, group *models.Group) error {
	_, err := r.db.NewInsert().
		Model(group).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// GetByID retrieves a group by ID
func (r *BunGroupRepository) GetByID(ctx context.Context, id int64) (*models.Group, error) {
	group := new(models.Group)
	err := r.db.NewSelect().
		Model(group).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// GetByName retrieves a group by name
func (r *BunGroupRepository) GetByName(ctx context.Context, name string) (*models.Group, error) {
	group := new(models.Group)
	err := r.db.NewSelect().
		Model(group).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get group by name: %w", err)
	}
	return group, nil
}

// List retrieves all groups ordered by name
func (r *BunGroupRepository) List(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.NewSelect().
		Model(&groups).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// Update updates an existing group
func (r *BunGroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().
		Model(group).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("group %d: %w", group.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a group by ID
func (r *BunGroupRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.NewDelete().
		Model((*models.Group)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("group %d: %w", id, ErrNotFound)
	}
	return nil
}

// AddMember inserts a user→group membership
func (r *BunGroupRepository) AddMember(ctx context.Context, userID, groupID int64) error {
	membership := &models.UserGroup{UserID: userID, GroupID: groupID}
	_, err := r.db.NewInsert().
		Model(membership).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember deletes a user→group membership
func (r *BunGroupRepository) RemoveMember(ctx context.Context, userID, groupID int64) error {
	result, err := r.db.NewDelete().
		Model((*models.UserGroup)(nil)).
		Where("user_id = ?", userID).
		Where("group_id = ?", groupID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("membership user=%d group=%d: %w", userID, groupID, ErrNotFound)
	}
	return nil
}

// Members lists the direct members of a group ordered by login
func (r *BunGroupRepository) Members(ctx context.Context, groupID int64) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Join("JOIN role_manager_user_groups AS ug ON ug.user_id = u.id").
		Where("ug.group_id = ?", groupID).
		Order("u.login ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return users, nil
}

// AddEdge inserts a parent→child subgroup edge. Acyclicity is the caller's
// responsibility (see GroupsManager.AddSubgroup, which runs the check and
// the insert in one transaction).
func (r *BunGroupRepository) AddEdge(ctx context.Context, parentID, childID int64) error {
	edge := &models.GroupSubgroup{ParentGroupID: parentID, ChildGroupID: childID}
	_, err := r.db.NewInsert().
		Model(edge).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("add subgroup edge: %w", err)
	}
	return nil
}

// RemoveEdge deletes a parent→child subgroup edge. Returns false if the edge
// did not exist.
func (r *BunGroupRepository) RemoveEdge(ctx context.Context, parentID, childID int64) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*models.GroupSubgroup)(nil)).
		Where("parent_group_id = ?", parentID).
		Where("child_group_id = ?", childID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("remove subgroup edge: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Subgroups lists the direct children of a group ordered by name
func (r *BunGroupRepository) Subgroups(ctx context.Context, parentID int64) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.NewSelect().
		Model(&groups).
		Join("JOIN role_manager_group_subgroups AS gs ON gs.child_group_id = g.id").
		Where("gs.parent_group_id = ?", parentID).
		Order("g.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subgroups: %w", err)
	}
	return groups, nil
}

// IsDescendant reports whether candidateID is in the descendant closure of
// ancestorID. The recursive term uses UNION (not UNION ALL) so the query
// terminates even on malformed cyclic data.
func (r *BunGroupRepository) IsDescendant(ctx context.Context, ancestorID, candidateID int64) (bool, error) {
	var count int64
	err := r.db.NewRaw(`
		WITH RECURSIVE descendants(group_id) AS (
			SELECT gs.child_group_id
			FROM role_manager_group_subgroups AS gs
			WHERE gs.parent_group_id = ?
			UNION
			SELECT gs.child_group_id
			FROM role_manager_group_subgroups AS gs
			JOIN descendants AS d ON gs.parent_group_id = d.group_id
		)
		SELECT COUNT(*) FROM descendants WHERE group_id = ?
	`, ancestorID, candidateID).Scan(ctx, &count)
	if err != nil {
		return false, fmt.Errorf("descendant check: %w", err)
	}
	return count > 0, nil
}

// UserClosure returns every group reachable upward from the user's direct
// memberships, deduplicated with minimum hop distance. The recursion stops
// at maxDepth edges, which bounds the walk even if the edge set contains a
// cycle written by a concurrent writer.
func (r *BunGroupRepository) UserClosure(ctx context.Context, userID int64, maxDepth int) ([]ClosureEntry, error) {
	var entries []ClosureEntry
	err := r.db.NewRaw(`
		WITH RECURSIVE closure(group_id, distance) AS (
			SELECT ug.group_id, 0
			FROM role_manager_user_groups AS ug
			WHERE ug.user_id = ?
			UNION ALL
			SELECT gs.parent_group_id, c.distance + 1
			FROM closure AS c
			JOIN role_manager_group_subgroups AS gs ON gs.child_group_id = c.group_id
			WHERE c.distance < ?
		)
		SELECT c.group_id AS group_id, g.name AS name, MIN(c.distance) AS distance
		FROM closure AS c
		JOIN role_manager_groups AS g ON g.id = c.group_id
		GROUP BY c.group_id, g.name
		ORDER BY distance ASC, name ASC
	`, userID, maxDepth).Scan(ctx, &entries)
	if err != nil {
		return nil, fmt.Errorf("user group closure: %w", err)
	}
	return entries, nil
}

// InUse reports whether the group has members, edges in either direction, or
// role assignments. Such groups are protected from deletion.
func (r *BunGroupRepository) InUse(ctx context.Context, groupID int64) (bool, error) {
	members, err := r.db.NewSelect().
		Model((*models.UserGroup)(nil)).
		Where("group_id = ?", groupID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check group members: %w", err)
	}
	if members {
		return true, nil
	}

	edges, err := r.db.NewSelect().
		Model((*models.GroupSubgroup)(nil)).
		WhereGroup(" OR ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.WhereOr("parent_group_id = ?", groupID).
				WhereOr("child_group_id = ?", groupID)
		}).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check group edges: %w", err)
	}
	if edges {
		return true, nil
	}

	assignments, err := r.db.NewSelect().
		Model((*models.GroupContextRole)(nil)).
		Where("group_id = ?", groupID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check group assignments: %w", err)
	}
	return assignments, nil
}

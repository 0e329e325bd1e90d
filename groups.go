package rolemanager

import (
	"context"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/repository"
)

// GroupsManager handles groups, the subgroup DAG and group role assignments.
type GroupsManager struct {
	core *core
}

// CreateGroupRequest carries the fields for a new group.
type CreateGroupRequest struct {
	Name        string `validate:"required,min=1,max=128"`
	Description *string
}

// UpdateGroupRequest carries a partial update; nil fields stay unchanged.
type UpdateGroupRequest struct {
	Name        *string `validate:"omitempty,min=1,max=128"`
	Description *string
}

// Create registers a group. An empty group alters no resolution, so the
// permissions version is untouched.
func (m *GroupsManager) Create(ctx context.Context, req CreateGroupRequest) (*Group, error) {
	if err := m.core.checkStruct(req); err != nil {
		return nil, err
	}

	group := &models.Group{Name: req.Name, Description: req.Description}
	if err := m.core.repos.Groups.Create(ctx, group); err != nil {
		return nil, storeError(err)
	}
	return toGroup(group), nil
}

// Get retrieves a group by id.
func (m *GroupsManager) Get(ctx context.Context, id int64) (*Group, error) {
	group, err := m.core.repos.Groups.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return toGroup(group), nil
}

// GetByName retrieves a group by name.
func (m *GroupsManager) GetByName(ctx context.Context, name string) (*Group, error) {
	group, err := m.core.repos.Groups.GetByName(ctx, name)
	if err != nil {
		return nil, storeError(err)
	}
	return toGroup(group), nil
}

// List returns all groups ordered by name.
func (m *GroupsManager) List(ctx context.Context) ([]Group, error) {
	groups, err := m.core.repos.Groups.List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return toGroups(groups), nil
}

// Update applies a partial update to a group.
func (m *GroupsManager) Update(ctx context.Context, id int64, req UpdateGroupRequest) (*Group, error) {
	if err := m.core.checkStruct(req); err != nil {
		return nil, err
	}

	group, err := m.core.repos.Groups.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if req.Name != nil {
		group.Name = *req.Name
	}
	if req.Description != nil {
		group.Description = req.Description
	}

	if err := m.core.repos.Groups.Update(ctx, group); err != nil {
		return nil, storeError(err)
	}
	return toGroup(group), nil
}

// Delete removes a group. Groups with members, subgroup edges in either
// direction, or role assignments are protected.
func (m *GroupsManager) Delete(ctx context.Context, id int64) error {
	inUse, err := m.core.repos.Groups.InUse(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if inUse {
		return dependencyErrorf("group %d still has members, subgroup edges or role assignments", id)
	}
	if err := m.core.repos.Groups.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

// Members lists the direct members of a group.
func (m *GroupsManager) Members(ctx context.Context, groupID int64) ([]User, error) {
	users, err := m.core.repos.Groups.Members(ctx, groupID)
	if err != nil {
		return nil, storeError(err)
	}
	return toUsers(users), nil
}

// Subgroups lists the direct children of a group.
func (m *GroupsManager) Subgroups(ctx context.Context, parentID int64) ([]Group, error) {
	groups, err := m.core.repos.Groups.Subgroups(ctx, parentID)
	if err != nil {
		return nil, storeError(err)
	}
	return toGroups(groups), nil
}

// AddSubgroup inserts the edge parent→child. Self-edges are refused, as is
// any edge that would close a cycle. The cycle check and the insert run in
// one serializable transaction together with the version bump: two writers
// racing to insert opposite edges would each pass the check under weaker
// isolation and commit a cycle.
func (m *GroupsManager) AddSubgroup(ctx context.Context, parentID, childID int64) error {
	if parentID == childID {
		return validationErrorf("group %d cannot be its own subgroup", parentID)
	}
	if _, err := m.core.repos.Groups.GetByID(ctx, parentID); err != nil {
		return storeError(err)
	}
	if _, err := m.core.repos.Groups.GetByID(ctx, childID); err != nil {
		return storeError(err)
	}

	return m.core.mutateSerializable(ctx, func(ctx context.Context, repos *repository.Registry) error {
		// The candidate edge parent→child closes a cycle iff parent is
		// already a descendant of child.
		cyclic, err := repos.Groups.IsDescendant(ctx, childID, parentID)
		if err != nil {
			return storeError(err)
		}
		if cyclic {
			return validationErrorf("adding group %d as subgroup of %d would create a cycle", childID, parentID)
		}
		if err := repos.Groups.AddEdge(ctx, parentID, childID); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// RemoveSubgroup deletes the edge parent→child.
func (m *GroupsManager) RemoveSubgroup(ctx context.Context, parentID, childID int64) error {
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		removed, err := repos.Groups.RemoveEdge(ctx, parentID, childID)
		if err != nil {
			return storeError(err)
		}
		if !removed {
			return notFoundErrorf("group %d is not a subgroup of %d", childID, parentID)
		}
		return nil
	})
}

// AssignRole grants a role to the group, optionally scoped to a context.
func (m *GroupsManager) AssignRole(ctx context.Context, groupID int64, roleID int64, contextID *int64) error {
	if _, err := m.core.repos.Groups.GetByID(ctx, groupID); err != nil {
		return storeError(err)
	}
	if _, err := m.core.repos.Roles.GetByID(ctx, roleID); err != nil {
		return storeError(err)
	}
	if contextID != nil {
		if _, err := m.core.repos.Contexts.GetByID(ctx, *contextID); err != nil {
			return storeError(err)
		}
	}

	exists, err := m.core.repos.Contexts.GroupAssignmentExists(ctx, groupID, contextID, roleID)
	if err != nil {
		return storeError(err)
	}
	if exists {
		return conflictErrorf("group %d already holds role %d in this context", groupID, roleID)
	}

	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		assignment := &models.GroupContextRole{GroupID: groupID, ContextID: contextID, RoleID: roleID}
		if err := repos.Contexts.AssignGroupRole(ctx, assignment); err != nil {
			return storeError(err)
		}
		return nil
	})
}

// UnassignRole revokes a role from the group in the given context.
func (m *GroupsManager) UnassignRole(ctx context.Context, groupID int64, roleID int64, contextID *int64) error {
	return m.core.mutate(ctx, func(ctx context.Context, repos *repository.Registry) error {
		removed, err := repos.Contexts.UnassignGroupRole(ctx, groupID, contextID, roleID)
		if err != nil {
			return storeError(err)
		}
		if !removed {
			return notFoundErrorf("group %d does not hold role %d in this context", groupID, roleID)
		}
		return nil
	})
}

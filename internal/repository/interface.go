package repository

import (
	"context"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// ClosureEntry is one group reachable from a user's direct memberships,
// tagged with the minimum number of subgroup edges traversed to reach it.
type ClosureEntry struct {
	GroupID  int64  `bun:"group_id"`
	Name     string `bun:"name"`
	Distance int    `bun:"distance"`
}

// UserRepository exposes persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error

	// HasRoleAssignments reports whether any user_context_roles row references the user.
	HasRoleAssignments(ctx context.Context, userID int64) (bool, error)
}

// GroupRepository exposes persistence operations for groups, memberships and
// the subgroup DAG.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int64) (*models.Group, error)
	GetByName(ctx context.Context, name string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id int64) error

	AddMember(ctx context.Context, userID, groupID int64) error
	RemoveMember(ctx context.Context, userID, groupID int64) error
	Members(ctx context.Context, groupID int64) ([]models.User, error)

	AddEdge(ctx context.Context, parentID, childID int64) error
	RemoveEdge(ctx context.Context, parentID, childID int64) (bool, error)
	Subgroups(ctx context.Context, parentID int64) ([]models.Group, error)

	// IsDescendant reports whether candidateID lies in the descendant
	// closure of ancestorID (walking parent→child edges downward).
	// Inserting an edge parent→child creates a cycle iff parent is a
	// descendant of child.
	IsDescendant(ctx context.Context, ancestorID, candidateID int64) (bool, error)

	// UserClosure returns every group reachable upward from the user's
	// direct memberships, deduplicated by group with minimum distance.
	// Rows beyond maxDepth edges are not returned; the caller detects
	// truncation by asking for maxDepth+1 and discarding the overflow.
	UserClosure(ctx context.Context, userID int64, maxDepth int) ([]ClosureEntry, error)

	// InUse reports whether the group has members, subgroup edges in either
	// direction, or role assignments.
	InUse(ctx context.Context, groupID int64) (bool, error)
}

// RightRepository exposes persistence operations for rights, right-groups and
// right-type ranges.
type RightRepository interface {
	CreateRightGroup(ctx context.Context, rg *models.RightGroup) error
	GetRightGroup(ctx context.Context, id int64) (*models.RightGroup, error)
	ListRightGroups(ctx context.Context) ([]models.RightGroup, error)
	UpdateRightGroup(ctx context.Context, rg *models.RightGroup) error
	DeleteRightGroup(ctx context.Context, id int64) error
	RightGroupInUse(ctx context.Context, id int64) (bool, error)

	CreateRange(ctx context.Context, rtr *models.RightRange) error
	GetRange(ctx context.Context, id int64) (*models.RightRange, error)
	ListRanges(ctx context.Context) ([]models.RightRange, error)
	UpdateRange(ctx context.Context, rtr *models.RightRange) error
	DeleteRange(ctx context.Context, id int64) error
	RangeInUse(ctx context.Context, id int64) (bool, error)

	CreateRight(ctx context.Context, right *models.Right) error
	GetRight(ctx context.Context, id int64) (*models.Right, error)
	GetRightByName(ctx context.Context, name string) (*models.Right, error)
	ListRights(ctx context.Context) ([]models.Right, error)
	UpdateRight(ctx context.Context, right *models.Right) error
	DeleteRight(ctx context.Context, id int64) error
	RightInUse(ctx context.Context, id int64) (bool, error)
}

// RoleRepository exposes persistence operations for roles and role-right links.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id int64) (*models.Role, error)
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id int64) error
	InUse(ctx context.Context, roleID int64) (bool, error)

	AddRight(ctx context.Context, rr *models.RoleRight) error
	RemoveRight(ctx context.Context, roleID, rightID int64) (bool, error)
	Rights(ctx context.Context, roleID int64) ([]models.RoleRight, error)
}

// ContextRepository exposes persistence operations for contexts and the
// user/group role assignments scoped to them.
type ContextRepository interface {
	Create(ctx context.Context, c *models.Context) error
	GetByID(ctx context.Context, id int64) (*models.Context, error)
	GetByName(ctx context.Context, name string) (*models.Context, error)
	List(ctx context.Context) ([]models.Context, error)
	Update(ctx context.Context, c *models.Context) error
	Delete(ctx context.Context, id int64) error
	InUse(ctx context.Context, contextID int64) (bool, error)

	AssignUserRole(ctx context.Context, a *models.UserContextRole) error
	UnassignUserRole(ctx context.Context, userID int64, contextID *int64, roleID int64) (bool, error)
	UserAssignmentExists(ctx context.Context, userID int64, contextID *int64, roleID int64) (bool, error)

	AssignGroupRole(ctx context.Context, a *models.GroupContextRole) error
	UnassignGroupRole(ctx context.Context, groupID int64, contextID *int64, roleID int64) (bool, error)
	GroupAssignmentExists(ctx context.Context, groupID int64, contextID *int64, roleID int64) (bool, error)
}

// ConfigRepository reads and advances the global permissions version counter.
type ConfigRepository interface {
	// Version returns the current permissions_version value.
	Version(ctx context.Context) (int64, error)

	// Increment atomically advances permissions_version by one. When the
	// repository is transaction-bound, the increment commits with the
	// surrounding mutation.
	Increment(ctx context.Context) error
}

// LogRepository appends to and reads the database log channel.
type LogRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) error
	Recent(ctx context.Context, limit int) ([]models.LogEntry, error)
}

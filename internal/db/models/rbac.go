package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// RightType distinguishes boolean rights from numeric range rights.
type RightType string

const (
	RightTypeBoolean RightType = "boolean"
	RightTypeRange   RightType = "range"
)

// User represents a human principal.
// Login and Email are unique natural keys; ID is the surrogate key referenced
// by foreign keys so natural keys can change without cascading.
type User struct {
	bun.BaseModel `bun:"table:role_manager_users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Login        string    `bun:"login,notnull,unique"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"` // bcrypt hash
	FirstName    *string   `bun:"first_name"`
	LastName     *string   `bun:"last_name"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Group is a named collection of users. Groups form a DAG via GroupSubgroup
// edges; membership in a subgroup implies membership in every ancestor group.
type Group struct {
	bun.BaseModel `bun:"table:role_manager_groups,alias:g"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull,unique"`
	Description *string   `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// UserGroup is a direct user→group membership.
type UserGroup struct {
	bun.BaseModel `bun:"table:role_manager_user_groups,alias:ug"`

	UserID  int64 `bun:"user_id,pk"`  // FK to role_manager_users(id)
	GroupID int64 `bun:"group_id,pk"` // FK to role_manager_groups(id)
}

// GroupSubgroup is a directed parent→child edge between groups.
// Edge creation enforces parent != child and acyclicity.
type GroupSubgroup struct {
	bun.BaseModel `bun:"table:role_manager_group_subgroups,alias:gs"`

	ParentGroupID int64 `bun:"parent_group_id,pk"` // FK to role_manager_groups(id)
	ChildGroupID  int64 `bun:"child_group_id,pk"`  // FK to role_manager_groups(id)
}

// RightGroup is a named bucket for organizing rights.
type RightGroup struct {
	bun.BaseModel `bun:"table:role_manager_rightgroups,alias:rg"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// RightRange bounds the values a range right may carry.
// Values use a fixed scale of two decimal places.
type RightRange struct {
	bun.BaseModel `bun:"table:role_manager_righttype_ranges,alias:rtr"`

	ID       int64           `bun:"id,pk,autoincrement"`
	Name     string          `bun:"name,notnull,unique"`
	MinValue decimal.Decimal `bun:"min_value,notnull,type:numeric(12,2)"`
	MaxValue decimal.Decimal `bun:"max_value,notnull,type:numeric(12,2)"`
}

// Right is an atomic permission, either boolean or bound to a numeric range.
// RightTypeRangeID is set iff Type is RightTypeRange.
type Right struct {
	bun.BaseModel `bun:"table:role_manager_rights,alias:ri"`

	ID               int64     `bun:"id,pk,autoincrement"`
	Name             string    `bun:"name,notnull,unique"`
	RightGroupID     int64     `bun:"rightgroup_id,notnull"` // FK to role_manager_rightgroups(id)
	Type             RightType `bun:"right_type,notnull"`
	RightTypeRangeID *int64    `bun:"righttype_range_id"` // FK to role_manager_righttype_ranges(id)
}

// Role is a reusable template: a named set of (right, value?) pairs.
type Role struct {
	bun.BaseModel `bun:"table:role_manager_roles,alias:ro"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// RoleRight attaches a right to a role. RangeValue is present iff the right's
// type is range, and must lie within the right's bound range.
type RoleRight struct {
	bun.BaseModel `bun:"table:role_manager_role_rights,alias:rr"`

	RoleID     int64               `bun:"role_id,pk"`  // FK to role_manager_roles(id)
	RightID    int64               `bun:"right_id,pk"` // FK to role_manager_rights(id)
	RangeValue decimal.NullDecimal `bun:"range_value,type:numeric(12,2)"`
}

// Context is a named scope for role assignments. A NULL context_id in an
// assignment means the Global Context, valid everywhere with lowest priority.
type Context struct {
	bun.BaseModel `bun:"table:role_manager_contexts,alias:c"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// UserContextRole assigns a role to a user, optionally scoped to a context.
type UserContextRole struct {
	bun.BaseModel `bun:"table:role_manager_user_context_roles,alias:ucr"`

	ID        int64  `bun:"id,pk,autoincrement"`
	UserID    int64  `bun:"user_id,notnull"` // FK to role_manager_users(id)
	ContextID *int64 `bun:"context_id"`      // FK to role_manager_contexts(id); NULL = Global
	RoleID    int64  `bun:"role_id,notnull"` // FK to role_manager_roles(id)
}

// GroupContextRole assigns a role to a group, optionally scoped to a context.
type GroupContextRole struct {
	bun.BaseModel `bun:"table:role_manager_group_context_roles,alias:gcr"`

	ID        int64  `bun:"id,pk,autoincrement"`
	GroupID   int64  `bun:"group_id,notnull"` // FK to role_manager_groups(id)
	ContextID *int64 `bun:"context_id"`       // FK to role_manager_contexts(id); NULL = Global
	RoleID    int64  `bun:"role_id,notnull"`  // FK to role_manager_roles(id)
}

// ConfigEntry is a key/value row in the configuration singleton table.
// The row ('permissions_version', n) is the global cache version token.
type ConfigEntry struct {
	bun.BaseModel `bun:"table:role_manager_config,alias:cfg"`

	Key   string `bun:"key,pk"`
	Value int64  `bun:"value,notnull"`
}

// PermissionsVersionKey is the config key holding the global version counter.
const PermissionsVersionKey = "permissions_version"

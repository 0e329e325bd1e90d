package rolemanager

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/services/authz"
)

// RightType distinguishes boolean rights from numeric range rights.
type RightType string

const (
	RightTypeBoolean RightType = RightType(models.RightTypeBoolean)
	RightTypeRange   RightType = RightType(models.RightTypeRange)
)

// User is a principal known to the engine. The password hash never leaves
// the store through this type.
type User struct {
	ID        int64
	Login     string
	Email     string
	FirstName *string
	LastName  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Group is a named collection of users, arranged in a DAG via subgroup edges.
type Group struct {
	ID          int64
	Name        string
	Description *string
}

// RightGroup is a named bucket for organizing rights.
type RightGroup struct {
	ID   int64
	Name string
}

// RightRange bounds the values a range right may carry.
type RightRange struct {
	ID       int64
	Name     string
	MinValue decimal.Decimal
	MaxValue decimal.Decimal
}

// Right is an atomic permission. RangeID is set iff Type is RightTypeRange.
type Right struct {
	ID           int64
	Name         string
	RightGroupID int64
	Type         RightType
	RangeID      *int64
}

// Role is a reusable template: a named set of (right, value?) pairs.
type Role struct {
	ID   int64
	Name string
}

// RoleRight is one (right, value?) pair attached to a role.
type RoleRight struct {
	RoleID     int64
	RightID    int64
	RangeValue *decimal.Decimal
}

// Context is a named scope for role assignments. A nil context id in the
// assignment APIs means the Global Context.
type Context struct {
	ID   int64
	Name string
}

// Identity is the non-secret subset of a user returned by Authenticate.
type Identity struct {
	ID        int64
	Login     string
	Email     string
	FirstName *string
	LastName  *string
}

// LogEntry is one record from the database log channel.
type LogEntry struct {
	ID        int64
	CreatedAt time.Time
	Level     string
	Message   string
	Context   map[string]any
}

// TraceStatus marks an explanation entry as the winning rule or an outranked
// one.
type TraceStatus string

const (
	StatusApplied    TraceStatus = TraceStatus(authz.StatusApplied)
	StatusOverridden TraceStatus = TraceStatus(authz.StatusOverridden)
)

// TraceEntry is one annotated candidate in an explanation.
type TraceEntry struct {
	Source      string
	Role        string
	Context     string
	Value       any // true for boolean rights, decimal.Decimal for range rights
	Specificity int
	Status      TraceStatus
}

// Explanation is the diagnostic form of a permission decision. Value is nil
// when denied, true for boolean grants and decimal.Decimal for range grants.
type Explanation struct {
	Decision bool
	Value    any
	Reason   string
	Trace    []TraceEntry
}

// conversions from the persistence layer

func toUser(m *models.User) *User {
	return &User{
		ID:        m.ID,
		Login:     m.Login,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toUsers(ms []models.User) []User {
	users := make([]User, len(ms))
	for i := range ms {
		users[i] = *toUser(&ms[i])
	}
	return users
}

func toGroup(m *models.Group) *Group {
	return &Group{ID: m.ID, Name: m.Name, Description: m.Description}
}

func toGroups(ms []models.Group) []Group {
	groups := make([]Group, len(ms))
	for i := range ms {
		groups[i] = *toGroup(&ms[i])
	}
	return groups
}

func toRightGroup(m *models.RightGroup) *RightGroup {
	return &RightGroup{ID: m.ID, Name: m.Name}
}

func toRange(m *models.RightRange) *RightRange {
	return &RightRange{ID: m.ID, Name: m.Name, MinValue: m.MinValue, MaxValue: m.MaxValue}
}

func toRight(m *models.Right) *Right {
	return &Right{
		ID:           m.ID,
		Name:         m.Name,
		RightGroupID: m.RightGroupID,
		Type:         RightType(m.Type),
		RangeID:      m.RightTypeRangeID,
	}
}

func toRole(m *models.Role) *Role {
	return &Role{ID: m.ID, Name: m.Name}
}

func toRoleRight(m *models.RoleRight) *RoleRight {
	rr := &RoleRight{RoleID: m.RoleID, RightID: m.RightID}
	if m.RangeValue.Valid {
		value := m.RangeValue.Decimal
		rr.RangeValue = &value
	}
	return rr
}

func toContext(m *models.Context) *Context {
	return &Context{ID: m.ID, Name: m.Name}
}

func toContexts(ms []models.Context) []Context {
	contexts := make([]Context, len(ms))
	for i := range ms {
		contexts[i] = *toContext(&ms[i])
	}
	return contexts
}

func toLogEntry(m *models.LogEntry) *LogEntry {
	return &LogEntry{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Level:     m.Level,
		Message:   m.Message,
		Context:   m.Context,
	}
}

func toExplanation(e *authz.Explanation) *Explanation {
	trace := make([]TraceEntry, len(e.Trace))
	for i, t := range e.Trace {
		trace[i] = TraceEntry{
			Source:      t.Source,
			Role:        t.Role,
			Context:     t.Context,
			Value:       t.Value,
			Specificity: t.Specificity,
			Status:      TraceStatus(t.Status),
		}
	}
	return &Explanation{
		Decision: e.Decision,
		Value:    e.Value,
		Reason:   e.Reason,
		Trace:    trace,
	}
}

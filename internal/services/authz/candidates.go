package authz

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/db/models"
)

// SourceKind identifies where a candidate rule originates.
type SourceKind string

const (
	SourceUser  SourceKind = "user"
	SourceGroup SourceKind = "group"
)

// ContextKind distinguishes rules bound to the queried context from Global ones.
type ContextKind string

const (
	ContextSpecific ContextKind = "specific"
	ContextGlobal   ContextKind = "global"
)

// GlobalContextName is the display name used for NULL-context rules.
const GlobalContextName = "Global"

// MaxGroupDepth is the safety bound on upward group traversal. Memberships
// further than MaxGroupDepth subgroup hops from the user are dropped with a
// warning.
const MaxGroupDepth = 10

// Candidate is one rule that could grant a right to the user under the
// queried context, before ranking.
type Candidate struct {
	SourceKind  SourceKind
	SourceID    int64
	SourceName  string
	RoleName    string
	ContextKind ContextKind
	ContextName string
	RightName   string
	RightType   models.RightType
	RangeValue  decimal.NullDecimal
	Distance    int // 0 for user sources, hop count for group sources
}

// candidateRow is the scan target shared by the user- and group-source
// queries.
type candidateRow struct {
	SourceID    int64               `bun:"source_id"`
	SourceName  string              `bun:"source_name"`
	RoleName    string              `bun:"role_name"`
	ContextID   *int64              `bun:"context_id"`
	ContextName *string             `bun:"context_name"`
	RightName   string              `bun:"right_name"`
	RightType   string              `bun:"right_type"`
	RangeValue  decimal.NullDecimal `bun:"range_value"`
}

func (row candidateRow) toCandidate(kind SourceKind, distance int) Candidate {
	c := Candidate{
		SourceKind:  kind,
		SourceID:    row.SourceID,
		SourceName:  row.SourceName,
		RoleName:    row.RoleName,
		ContextKind: ContextGlobal,
		ContextName: GlobalContextName,
		RightName:   row.RightName,
		RightType:   models.RightType(row.RightType),
		RangeValue:  row.RangeValue,
		Distance:    distance,
	}
	if row.ContextID != nil {
		c.ContextKind = ContextSpecific
		if row.ContextName != nil {
			c.ContextName = *row.ContextName
		}
	}
	return c
}

// enumerate yields every rule that might grant a right to the user under the
// context constraint. contextID nil restricts to Global-only rules; non-nil
// means "this context or Global" — unless the user holds a direct assignment
// bound to that exact context, in which case the direct assignment shadows
// every Global rule and the query becomes exact-context. rightName, when
// non-nil, restricts the enumeration to a single right (the explain path).
func (r *Resolver) enumerate(ctx context.Context, userID int64, contextID *int64, rightName *string) ([]Candidate, error) {
	exactOnly := false
	if contextID != nil {
		shadowed, err := r.hasDirectContextAssignment(ctx, userID, *contextID)
		if err != nil {
			return nil, err
		}
		exactOnly = shadowed
	}

	userRows, err := r.userCandidates(ctx, userID, contextID, exactOnly, rightName)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(userRows))
	for _, row := range userRows {
		candidates = append(candidates, row.toCandidate(SourceUser, 0))
	}

	closure, err := r.groupClosure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(closure) == 0 {
		return candidates, nil
	}

	groupIDs := make([]int64, 0, len(closure))
	for id := range closure {
		groupIDs = append(groupIDs, id)
	}

	groupRows, err := r.groupCandidates(ctx, groupIDs, contextID, exactOnly, rightName)
	if err != nil {
		return nil, err
	}
	for _, row := range groupRows {
		candidates = append(candidates, row.toCandidate(SourceGroup, closure[row.SourceID]))
	}
	return candidates, nil
}

// groupClosure returns group id → minimum hop distance for every group
// reachable from the user within MaxGroupDepth. Entries beyond the bound are
// dropped and reported at warning level; the bound also terminates traversal
// over malformed cyclic data written by a concurrent writer.
func (r *Resolver) groupClosure(ctx context.Context, userID int64) (map[int64]int, error) {
	entries, err := r.groups.UserClosure(ctx, userID, MaxGroupDepth+1)
	if err != nil {
		return nil, err
	}

	closure := make(map[int64]int, len(entries))
	truncated := 0
	for _, entry := range entries {
		if entry.Distance > MaxGroupDepth {
			truncated++
			continue
		}
		closure[entry.GroupID] = entry.Distance
	}
	if truncated > 0 {
		r.log.Warning(ctx, "group traversal depth cap exceeded, dropping distant groups", models.LogContext{
			"user_id":   userID,
			"max_depth": MaxGroupDepth,
			"dropped":   truncated,
		})
	}
	return closure, nil
}

// hasDirectContextAssignment reports whether the user holds any assignment
// bound to exactly the given context. Such an assignment makes the context
// query exact: Global rules no longer apply to this user in this context,
// regardless of which rights they would have granted.
func (r *Resolver) hasDirectContextAssignment(ctx context.Context, userID, contextID int64) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*models.UserContextRole)(nil)).
		Where("ucr.user_id = ?", userID).
		Where("ucr.context_id = ?", contextID).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("probe direct context assignments: %w", err)
	}
	return count > 0, nil
}

func (r *Resolver) userCandidates(ctx context.Context, userID int64, contextID *int64, exactOnly bool, rightName *string) ([]candidateRow, error) {
	q := r.db.NewSelect().
		Model((*models.UserContextRole)(nil)).
		ColumnExpr("u.id AS source_id").
		ColumnExpr("u.login AS source_name").
		ColumnExpr("ro.name AS role_name").
		ColumnExpr("ucr.context_id AS context_id").
		ColumnExpr("c.name AS context_name").
		ColumnExpr("ri.name AS right_name").
		ColumnExpr("ri.right_type AS right_type").
		ColumnExpr("rr.range_value AS range_value").
		Join("JOIN role_manager_users AS u ON u.id = ucr.user_id").
		Join("JOIN role_manager_roles AS ro ON ro.id = ucr.role_id").
		Join("JOIN role_manager_role_rights AS rr ON rr.role_id = ro.id").
		Join("JOIN role_manager_rights AS ri ON ri.id = rr.right_id").
		Join("LEFT JOIN role_manager_contexts AS c ON c.id = ucr.context_id").
		Where("ucr.user_id = ?", userID)
	q = applyFilters(q, "ucr", contextID, exactOnly, rightName)

	var rows []candidateRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("enumerate user candidates: %w", err)
	}
	return rows, nil
}

func (r *Resolver) groupCandidates(ctx context.Context, groupIDs []int64, contextID *int64, exactOnly bool, rightName *string) ([]candidateRow, error) {
	q := r.db.NewSelect().
		Model((*models.GroupContextRole)(nil)).
		ColumnExpr("g.id AS source_id").
		ColumnExpr("g.name AS source_name").
		ColumnExpr("ro.name AS role_name").
		ColumnExpr("gcr.context_id AS context_id").
		ColumnExpr("c.name AS context_name").
		ColumnExpr("ri.name AS right_name").
		ColumnExpr("ri.right_type AS right_type").
		ColumnExpr("rr.range_value AS range_value").
		Join("JOIN role_manager_groups AS g ON g.id = gcr.group_id").
		Join("JOIN role_manager_roles AS ro ON ro.id = gcr.role_id").
		Join("JOIN role_manager_role_rights AS rr ON rr.role_id = ro.id").
		Join("JOIN role_manager_rights AS ri ON ri.id = rr.right_id").
		Join("LEFT JOIN role_manager_contexts AS c ON c.id = gcr.context_id").
		Where("gcr.group_id IN (?)", bun.In(groupIDs))
	q = applyFilters(q, "gcr", contextID, exactOnly, rightName)

	var rows []candidateRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("enumerate group candidates: %w", err)
	}
	return rows, nil
}

// applyFilters adds the NULL-aware context predicate and the optional right
// name filter. alias is the assignment table alias ("ucr" or "gcr").
func applyFilters(q *bun.SelectQuery, alias string, contextID *int64, exactOnly bool, rightName *string) *bun.SelectQuery {
	switch {
	case contextID == nil:
		q = q.Where(alias + ".context_id IS NULL")
	case exactOnly:
		q = q.Where(alias+".context_id = ?", *contextID)
	default:
		q = q.Where("("+alias+".context_id = ? OR "+alias+".context_id IS NULL)", *contextID)
	}
	if rightName != nil {
		q = q.Where("ri.name = ?", *rightName)
	}
	return q
}

package rolemanager

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersManager_Validation(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  CreateUserRequest
	}{
		{"empty login", CreateUserRequest{Email: "a@example.com", Password: "longenough"}},
		{"invalid email", CreateUserRequest{Login: "carol", Email: "not-an-email", Password: "longenough"}},
		{"short password", CreateUserRequest{Login: "carol", Email: "c@example.com", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rm.Users().Create(ctx, tc.req)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestUsersManager_DuplicateLogin(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	req := CreateUserRequest{Login: "carol", Email: "carol@example.com", Password: "longenough"}
	_, err := rm.Users().Create(ctx, req)
	require.NoError(t, err)

	req.Email = "other@example.com"
	_, err = rm.Users().Create(ctx, req)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestUsersManager_DeleteProtectedByAssignments(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	user, err := rm.Users().Create(ctx, CreateUserRequest{
		Login: "carol", Email: "carol@example.com", Password: "longenough",
	})
	require.NoError(t, err)
	role, err := rm.Roles().Create(ctx, "auditor")
	require.NoError(t, err)
	require.NoError(t, rm.Users().AssignRole(ctx, user.ID, role.ID, nil))

	err = rm.Users().Delete(ctx, user.ID)
	assert.Equal(t, KindDependency, KindOf(err))

	require.NoError(t, rm.Users().UnassignRole(ctx, user.ID, role.ID, nil))
	require.NoError(t, rm.Users().Delete(ctx, user.ID))
}

func TestUsersManager_DuplicateAssignment(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	user, err := rm.Users().Create(ctx, CreateUserRequest{
		Login: "carol", Email: "carol@example.com", Password: "longenough",
	})
	require.NoError(t, err)
	role, err := rm.Roles().Create(ctx, "auditor")
	require.NoError(t, err)

	require.NoError(t, rm.Users().AssignRole(ctx, user.ID, role.ID, nil))
	err = rm.Users().AssignRole(ctx, user.ID, role.ID, nil)
	assert.Equal(t, KindConflict, KindOf(err))

	err = rm.Users().UnassignRole(ctx, user.ID, role.ID, nil)
	require.NoError(t, err)
	err = rm.Users().UnassignRole(ctx, user.ID, role.ID, nil)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestGroupsManager_CycleRejection(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	a, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "a"})
	require.NoError(t, err)
	b, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "b"})
	require.NoError(t, err)
	c, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "c"})
	require.NoError(t, err)

	err = rm.Groups().AddSubgroup(ctx, a.ID, a.ID)
	assert.Equal(t, KindValidation, KindOf(err), "self edge")

	require.NoError(t, rm.Groups().AddSubgroup(ctx, a.ID, b.ID))
	require.NoError(t, rm.Groups().AddSubgroup(ctx, b.ID, c.ID))

	err = rm.Groups().AddSubgroup(ctx, c.ID, a.ID)
	assert.Equal(t, KindValidation, KindOf(err), "closing edge of a 3-cycle")

	err = rm.Groups().AddSubgroup(ctx, b.ID, a.ID)
	assert.Equal(t, KindValidation, KindOf(err), "closing edge of a 2-cycle")
}

func TestSerializableRetry(t *testing.T) {
	t.Run("gives up after the attempt budget", func(t *testing.T) {
		calls := 0
		err := withSerializableRetry(3, func() error {
			calls++
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("succeeds after losing one race", func(t *testing.T) {
		calls := 0
		err := withSerializableRetry(3, func() error {
			calls++
			if calls == 1 {
				return fmt.Errorf("add edge: %w", errors.New("database is locked"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := withSerializableRetry(3, func() error {
			calls++
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, calls)
	})
}

func TestGroupsManager_DeleteProtection(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	parent, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "parent"})
	require.NoError(t, err)
	child, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "child"})
	require.NoError(t, err)
	require.NoError(t, rm.Groups().AddSubgroup(ctx, parent.ID, child.ID))

	err = rm.Groups().Delete(ctx, parent.ID)
	assert.Equal(t, KindDependency, KindOf(err))
	err = rm.Groups().Delete(ctx, child.ID)
	assert.Equal(t, KindDependency, KindOf(err))

	require.NoError(t, rm.Groups().RemoveSubgroup(ctx, parent.ID, child.ID))
	require.NoError(t, rm.Groups().Delete(ctx, parent.ID))
	require.NoError(t, rm.Groups().Delete(ctx, child.ID))
}

func TestRolesManager_RangeBounds(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	articles, err := rm.RightGroups().Create(ctx, "articles")
	require.NoError(t, err)
	budget, err := rm.RightTypes().CreateRange(ctx, CreateRangeRequest{
		Name: "budget", MinValue: dec("0"), MaxValue: dec("10000"),
	})
	require.NoError(t, err)
	approve, err := rm.Rights().Create(ctx, CreateRightRequest{
		Name: "approve_budget", RightGroupID: articles.ID, Type: RightTypeRange, RangeID: &budget.ID,
	})
	require.NoError(t, err)
	view, err := rm.Rights().Create(ctx, CreateRightRequest{
		Name: "view_article", RightGroupID: articles.ID, Type: RightTypeBoolean,
	})
	require.NoError(t, err)

	role, err := rm.Roles().Create(ctx, "manager")
	require.NoError(t, err)

	t.Run("min and max are accepted", func(t *testing.T) {
		require.NoError(t, rm.Roles().AddRight(ctx, role.ID, approve.ID, decPtr("0")))
		require.NoError(t, rm.Roles().RemoveRight(ctx, role.ID, approve.ID))
		require.NoError(t, rm.Roles().AddRight(ctx, role.ID, approve.ID, decPtr("10000")))
		require.NoError(t, rm.Roles().RemoveRight(ctx, role.ID, approve.ID))
	})

	t.Run("below min is rejected with the literal bounds", func(t *testing.T) {
		err := rm.Roles().AddRight(ctx, role.ID, approve.ID, decPtr("-0.01"))
		require.Equal(t, KindValidation, KindOf(err))
		assert.Contains(t, err.Error(), "-0.01")
		assert.Contains(t, err.Error(), "[0.00, 10000.00]")
	})

	t.Run("above max is rejected with the literal bounds", func(t *testing.T) {
		err := rm.Roles().AddRight(ctx, role.ID, approve.ID, decPtr("10000.01"))
		require.Equal(t, KindValidation, KindOf(err))
		assert.Contains(t, err.Error(), "10000.01")
		assert.Contains(t, err.Error(), "[0.00, 10000.00]")
	})

	t.Run("range right requires a value", func(t *testing.T) {
		err := rm.Roles().AddRight(ctx, role.ID, approve.ID, nil)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("boolean right rejects a value", func(t *testing.T) {
		err := rm.Roles().AddRight(ctx, role.ID, view.ID, decPtr("1"))
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("duplicate attachment conflicts", func(t *testing.T) {
		require.NoError(t, rm.Roles().AddRight(ctx, role.ID, view.ID, nil))
		err := rm.Roles().AddRight(ctx, role.ID, view.ID, nil)
		assert.Equal(t, KindConflict, KindOf(err))
	})
}

func TestRightsManager_TypeRangeLink(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	articles, err := rm.RightGroups().Create(ctx, "articles")
	require.NoError(t, err)
	budget, err := rm.RightTypes().CreateRange(ctx, CreateRangeRequest{
		Name: "budget", MinValue: dec("0"), MaxValue: dec("100"),
	})
	require.NoError(t, err)

	_, err = rm.Rights().Create(ctx, CreateRightRequest{
		Name: "x", RightGroupID: articles.ID, Type: RightTypeBoolean, RangeID: &budget.ID,
	})
	assert.Equal(t, KindValidation, KindOf(err), "boolean right cannot bind a range")

	_, err = rm.Rights().Create(ctx, CreateRightRequest{
		Name: "y", RightGroupID: articles.ID, Type: RightTypeRange,
	})
	assert.Equal(t, KindValidation, KindOf(err), "range right requires a range")

	_, err = rm.RightTypes().CreateRange(ctx, CreateRangeRequest{
		Name: "inverted", MinValue: dec("5"), MaxValue: dec("1"),
	})
	assert.Equal(t, KindValidation, KindOf(err), "min must not exceed max")
}

func TestDependencyProtectedDeletes(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	articles, err := rm.RightGroups().Create(ctx, "articles")
	require.NoError(t, err)
	budget, err := rm.RightTypes().CreateRange(ctx, CreateRangeRequest{
		Name: "budget", MinValue: dec("0"), MaxValue: dec("100"),
	})
	require.NoError(t, err)
	approve, err := rm.Rights().Create(ctx, CreateRightRequest{
		Name: "approve_budget", RightGroupID: articles.ID, Type: RightTypeRange, RangeID: &budget.ID,
	})
	require.NoError(t, err)
	role, err := rm.Roles().Create(ctx, "manager")
	require.NoError(t, err)
	require.NoError(t, rm.Roles().AddRight(ctx, role.ID, approve.ID, decPtr("50")))

	group, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "managers"})
	require.NoError(t, err)
	alpha, err := rm.Contexts().Create(ctx, "Alpha")
	require.NoError(t, err)
	require.NoError(t, rm.Groups().AssignRole(ctx, group.ID, role.ID, &alpha.ID))

	assert.Equal(t, KindDependency, KindOf(rm.RightGroups().Delete(ctx, articles.ID)), "right group holds a right")
	assert.Equal(t, KindDependency, KindOf(rm.RightTypes().DeleteRange(ctx, budget.ID)), "range bound to a right")
	assert.Equal(t, KindDependency, KindOf(rm.Rights().Delete(ctx, approve.ID)), "right attached to a role")
	assert.Equal(t, KindDependency, KindOf(rm.Roles().Delete(ctx, role.ID)), "role assigned to a group")
	assert.Equal(t, KindDependency, KindOf(rm.Contexts().Delete(ctx, alpha.ID)), "context referenced by an assignment")

	// Unwind in dependency order; every delete now succeeds.
	require.NoError(t, rm.Groups().UnassignRole(ctx, group.ID, role.ID, &alpha.ID))
	require.NoError(t, rm.Contexts().Delete(ctx, alpha.ID))
	require.NoError(t, rm.Roles().RemoveRight(ctx, role.ID, approve.ID))
	require.NoError(t, rm.Roles().Delete(ctx, role.ID))
	require.NoError(t, rm.Rights().Delete(ctx, approve.ID))
	require.NoError(t, rm.RightTypes().DeleteRange(ctx, budget.ID))
	require.NoError(t, rm.RightGroups().Delete(ctx, articles.ID))
}

func TestVersionAccounting(t *testing.T) {
	rm := newTestManager(t)
	ctx := context.Background()

	version := func() int64 {
		v, err := rm.Version(ctx)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, int64(1), version(), "migration seeds the counter at 1")

	// Creations with no assignments attached do not advance the counter.
	user, err := rm.Users().Create(ctx, CreateUserRequest{
		Login: "carol", Email: "carol@example.com", Password: "longenough",
	})
	require.NoError(t, err)
	parent, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "parent"})
	require.NoError(t, err)
	child, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "child"})
	require.NoError(t, err)
	_, err = rm.Contexts().Create(ctx, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version())

	// Edge add and remove advance the counter by exactly two.
	require.NoError(t, rm.Groups().AddSubgroup(ctx, parent.ID, child.ID))
	require.NoError(t, rm.Groups().RemoveSubgroup(ctx, parent.ID, child.ID))
	assert.Equal(t, int64(3), version())

	// Membership changes advance it too.
	require.NoError(t, rm.Users().AddToGroup(ctx, user.ID, parent.ID))
	assert.Equal(t, int64(4), version())

	// A failed mutation leaves the counter untouched.
	err = rm.Groups().AddSubgroup(ctx, parent.ID, parent.ID)
	require.Error(t, err)
	assert.Equal(t, int64(4), version())

	require.NoError(t, rm.InvalidateCache(ctx))
	assert.Equal(t, int64(5), version())
}

func TestLogsRecent(t *testing.T) {
	rm := newTestManager(t, WithLogLevels("fatal", "info"))
	ctx := context.Background()

	_, err := rm.Users().Create(ctx, CreateUserRequest{
		Login: "carol", Email: "carol@example.com", Password: "longenough",
	})
	require.NoError(t, err)

	entries, err := rm.Logs().Recent(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "user created", entries[0].Message)
	assert.Equal(t, "carol", entries[0].Context["login"])
}

func TestSetLogLevels(t *testing.T) {
	rm := newTestManager(t)

	require.NoError(t, rm.SetConsoleLogLevel("debug"))
	require.NoError(t, rm.SetDBLogLevel("critical"))

	err := rm.SetConsoleLogLevel("verbose")
	assert.Equal(t, KindValidation, KindOf(err))
}

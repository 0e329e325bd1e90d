package rolemanager

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...Option) *RoleManager {
	t.Helper()

	rm, err := Open(":memory:", append([]Option{WithLogLevels("fatal", "error")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { rm.Close() })

	require.NoError(t, rm.Migrate(context.Background()))
	return rm
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// newsroom seeds the editorial fixture: a staff hierarchy, boolean article
// rights, a budget range right, and context-scoped role assignments.
type newsroom struct {
	rm         *RoleManager
	alice, bob *User

	alpha, beta, omega *Context
}

func seedNewsroom(t *testing.T, rm *RoleManager) *newsroom {
	t.Helper()
	ctx := context.Background()

	alice, err := rm.Users().Create(ctx, CreateUserRequest{
		Login: "alice", Email: "alice@example.com", Password: "correct-horse",
	})
	require.NoError(t, err)
	bob, err := rm.Users().Create(ctx, CreateUserRequest{
		Login: "bob", Email: "bob@example.com", Password: "battery-staple",
	})
	require.NoError(t, err)

	staff, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "Staff"})
	require.NoError(t, err)
	editors, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "Editors"})
	require.NoError(t, err)
	proofreaders, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "Proofreaders"})
	require.NoError(t, err)
	marketing, err := rm.Groups().Create(ctx, CreateGroupRequest{Name: "Marketing"})
	require.NoError(t, err)

	require.NoError(t, rm.Groups().AddSubgroup(ctx, staff.ID, editors.ID))
	require.NoError(t, rm.Groups().AddSubgroup(ctx, editors.ID, proofreaders.ID))

	require.NoError(t, rm.Users().AddToGroup(ctx, alice.ID, editors.ID))
	require.NoError(t, rm.Users().AddToGroup(ctx, alice.ID, marketing.ID))
	require.NoError(t, rm.Users().AddToGroup(ctx, bob.ID, proofreaders.ID))

	articles, err := rm.RightGroups().Create(ctx, "articles")
	require.NoError(t, err)
	budget, err := rm.RightTypes().CreateRange(ctx, CreateRangeRequest{
		Name: "budget", MinValue: dec("0"), MaxValue: dec("10000"),
	})
	require.NoError(t, err)

	view, err := rm.Rights().Create(ctx, CreateRightRequest{
		Name: "view_article", RightGroupID: articles.ID, Type: RightTypeBoolean,
	})
	require.NoError(t, err)
	publish, err := rm.Rights().Create(ctx, CreateRightRequest{
		Name: "publish_article", RightGroupID: articles.ID, Type: RightTypeBoolean,
	})
	require.NoError(t, err)
	edit, err := rm.Rights().Create(ctx, CreateRightRequest{
		Name: "edit_article", RightGroupID: articles.ID, Type: RightTypeBoolean,
	})
	require.NoError(t, err)
	approveBudget, err := rm.Rights().Create(ctx, CreateRightRequest{
		Name: "approve_budget", RightGroupID: articles.ID, Type: RightTypeRange, RangeID: &budget.ID,
	})
	require.NoError(t, err)

	reader, err := rm.Roles().Create(ctx, "Reader")
	require.NoError(t, err)
	require.NoError(t, rm.Roles().AddRight(ctx, reader.ID, view.ID, nil))

	proofreaderRole, err := rm.Roles().Create(ctx, "Proofreader")
	require.NoError(t, err)
	require.NoError(t, rm.Roles().AddRight(ctx, proofreaderRole.ID, edit.ID, nil))

	editorRole, err := rm.Roles().Create(ctx, "Editor")
	require.NoError(t, err)
	require.NoError(t, rm.Roles().AddRight(ctx, editorRole.ID, publish.ID, nil))
	require.NoError(t, rm.Roles().AddRight(ctx, editorRole.ID, approveBudget.ID, decPtr("2000")))

	marketingRole, err := rm.Roles().Create(ctx, "Marketing")
	require.NoError(t, err)
	require.NoError(t, rm.Roles().AddRight(ctx, marketingRole.ID, approveBudget.ID, decPtr("2500")))

	juniorManager, err := rm.Roles().Create(ctx, "JuniorManager")
	require.NoError(t, err)
	require.NoError(t, rm.Roles().AddRight(ctx, juniorManager.ID, approveBudget.ID, decPtr("1000")))

	intern, err := rm.Roles().Create(ctx, "Intern")
	require.NoError(t, err)
	require.NoError(t, rm.Roles().AddRight(ctx, intern.ID, view.ID, nil))

	alpha, err := rm.Contexts().Create(ctx, "Alpha")
	require.NoError(t, err)
	beta, err := rm.Contexts().Create(ctx, "Beta")
	require.NoError(t, err)
	omega, err := rm.Contexts().Create(ctx, "Omega")
	require.NoError(t, err)

	require.NoError(t, rm.Groups().AssignRole(ctx, staff.ID, reader.ID, nil))
	require.NoError(t, rm.Groups().AssignRole(ctx, proofreaders.ID, proofreaderRole.ID, nil))
	require.NoError(t, rm.Groups().AssignRole(ctx, proofreaders.ID, proofreaderRole.ID, &alpha.ID))
	require.NoError(t, rm.Groups().AssignRole(ctx, editors.ID, editorRole.ID, &alpha.ID))
	require.NoError(t, rm.Groups().AssignRole(ctx, marketing.ID, marketingRole.ID, &alpha.ID))
	require.NoError(t, rm.Users().AssignRole(ctx, alice.ID, juniorManager.ID, &beta.ID))
	require.NoError(t, rm.Users().AssignRole(ctx, bob.ID, intern.ID, &omega.ID))

	return &newsroom{rm: rm, alice: alice, bob: bob, alpha: alpha, beta: beta, omega: omega}
}

func TestNewsroomResolution(t *testing.T) {
	rm := newTestManager(t)
	n := seedNewsroom(t, rm)
	auth := rm.Auth()
	ctx := context.Background()

	t.Run("bob views articles in Alpha via global Reader", func(t *testing.T) {
		granted, err := auth.HasRight(ctx, n.bob.ID, "view_article", &n.alpha.ID)
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("alice publishes in Alpha via Editors", func(t *testing.T) {
		granted, err := auth.HasRight(ctx, n.alice.ID, "publish_article", &n.alpha.ID)
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("bob publishes in Alpha via nested Editors membership", func(t *testing.T) {
		granted, err := auth.HasRight(ctx, n.bob.ID, "publish_article", &n.alpha.ID)
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("alice cannot publish in Beta", func(t *testing.T) {
		granted, err := auth.HasRight(ctx, n.alice.ID, "publish_article", &n.beta.ID)
		require.NoError(t, err)
		assert.False(t, granted)
	})

	t.Run("alice approves 1000 in Beta, direct assignment wins", func(t *testing.T) {
		granted, value, err := auth.HasRightValue(ctx, n.alice.ID, "approve_budget", &n.beta.ID)
		require.NoError(t, err)
		assert.True(t, granted)
		assert.True(t, dec("1000").Equal(value), "got %s", value)
	})

	t.Run("bob edits globally via Proofreader", func(t *testing.T) {
		granted, err := auth.HasRight(ctx, n.bob.ID, "edit_article", nil)
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("bob cannot edit in Omega, Intern shadows global rules", func(t *testing.T) {
		granted, err := auth.HasRight(ctx, n.bob.ID, "edit_article", &n.omega.ID)
		require.NoError(t, err)
		assert.False(t, granted)
	})

	t.Run("alice approves 2500 in Alpha, higher range value wins the tie", func(t *testing.T) {
		granted, value, err := auth.HasRightValue(ctx, n.alice.ID, "approve_budget", &n.alpha.ID)
		require.NoError(t, err)
		assert.True(t, granted)
		assert.True(t, dec("2500").Equal(value), "got %s", value)
	})
}

func TestNewsroomExplain(t *testing.T) {
	rm := newTestManager(t)
	n := seedNewsroom(t, rm)
	ctx := context.Background()

	explanation, err := rm.Auth().ExplainRight(ctx, n.alice.ID, "approve_budget", &n.alpha.ID)
	require.NoError(t, err)

	assert.True(t, explanation.Decision)
	require.IsType(t, decimal.Decimal{}, explanation.Value)
	assert.True(t, dec("2500").Equal(explanation.Value.(decimal.Decimal)))
	assert.Equal(t,
		"Right granted by role 'Marketing' from source 'Marketing' in context 'Alpha'.",
		explanation.Reason)

	require.Len(t, explanation.Trace, 2)

	applied := explanation.Trace[0]
	assert.Equal(t, StatusApplied, applied.Status)
	assert.Equal(t, "Marketing", applied.Role)
	assert.Equal(t, "Marketing", applied.Source)
	assert.Equal(t, "Alpha", applied.Context)

	overridden := explanation.Trace[1]
	assert.Equal(t, StatusOverridden, overridden.Status)
	assert.Equal(t, "Editor", overridden.Role)
	assert.Equal(t, "Editors", overridden.Source)
	require.IsType(t, decimal.Decimal{}, overridden.Value)
	assert.True(t, dec("2000").Equal(overridden.Value.(decimal.Decimal)))
}

func TestExplainDenied(t *testing.T) {
	rm := newTestManager(t)
	n := seedNewsroom(t, rm)

	explanation, err := rm.Auth().ExplainRight(context.Background(), n.alice.ID, "edit_article", &n.beta.ID)
	require.NoError(t, err)

	assert.False(t, explanation.Decision)
	assert.Nil(t, explanation.Value)
	assert.Equal(t, "No rule found granting this right.", explanation.Reason)
	assert.Empty(t, explanation.Trace)
}

func TestAuthenticate(t *testing.T) {
	rm := newTestManager(t)
	n := seedNewsroom(t, rm)
	auth := rm.Auth()
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		identity, err := auth.Authenticate(ctx, "alice", "correct-horse")
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, n.alice.ID, identity.ID)
		assert.Equal(t, "alice", identity.Login)
		assert.Equal(t, "alice@example.com", identity.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		identity, err := auth.Authenticate(ctx, "alice", "wrong")
		require.NoError(t, err)
		assert.Nil(t, identity)
	})

	t.Run("unknown login", func(t *testing.T) {
		identity, err := auth.Authenticate(ctx, "mallory", "whatever")
		require.NoError(t, err)
		assert.Nil(t, identity)
	})
}

func TestRequestScopeMemoizes(t *testing.T) {
	rm := newTestManager(t)
	n := seedNewsroom(t, rm)

	reqCtx := rm.WithRequestScope(context.Background())

	granted, err := rm.Auth().HasRight(reqCtx, n.bob.ID, "view_article", &n.alpha.ID)
	require.NoError(t, err)
	assert.True(t, granted)

	// A mutation in flight does not disturb the answer within the same request.
	require.NoError(t, rm.InvalidateCache(context.Background()))

	granted, err = rm.Auth().HasRight(reqCtx, n.bob.ID, "view_article", &n.alpha.ID)
	require.NoError(t, err)
	assert.True(t, granted)

	// A fresh request recomputes against the new version and still agrees.
	granted, err = rm.Auth().HasRight(rm.WithRequestScope(context.Background()), n.bob.ID, "view_article", &n.alpha.ID)
	require.NoError(t, err)
	assert.True(t, granted)
}

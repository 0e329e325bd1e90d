package authz

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/accesskit/rolemanager/internal/db/models"
)

func boolCandidate(kind SourceKind, ctxKind ContextKind, distance int, sourceID int64, role string) Candidate {
	return Candidate{
		SourceKind:  kind,
		SourceID:    sourceID,
		RoleName:    role,
		ContextKind: ctxKind,
		RightName:   "publish_article",
		RightType:   models.RightTypeBoolean,
		Distance:    distance,
	}
}

func rangeCandidate(value string, distance int, sourceID int64, role string) Candidate {
	c := boolCandidate(SourceGroup, ContextSpecific, distance, sourceID, role)
	c.RightName = "approve_budget"
	c.RightType = models.RightTypeRange
	c.RangeValue = decimal.NullDecimal{Decimal: decimal.RequireFromString(value), Valid: true}
	return c
}

func TestSpecificity(t *testing.T) {
	cases := []struct {
		name string
		c    Candidate
		want int
	}{
		{"user specific", boolCandidate(SourceUser, ContextSpecific, 0, 1, "r"), 10},
		{"user global", boolCandidate(SourceUser, ContextGlobal, 0, 1, "r"), 110},
		{"direct group specific", boolCandidate(SourceGroup, ContextSpecific, 0, 1, "r"), 20},
		{"nested group specific", boolCandidate(SourceGroup, ContextSpecific, 3, 1, "r"), 23},
		{"nested group global", boolCandidate(SourceGroup, ContextGlobal, 2, 1, "r"), 122},
		{"deepest allowed group", boolCandidate(SourceGroup, ContextGlobal, MaxGroupDepth, 1, "r"), 130},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.c.Specificity())
		})
	}
}

func TestRankBefore_SpecificityDominates(t *testing.T) {
	userSpecific := boolCandidate(SourceUser, ContextSpecific, 0, 1, "a")
	userGlobal := boolCandidate(SourceUser, ContextGlobal, 0, 1, "a")
	groupSpecific := boolCandidate(SourceGroup, ContextSpecific, 0, 2, "a")
	farGroupSpecific := boolCandidate(SourceGroup, ContextSpecific, 5, 2, "a")

	assert.True(t, rankBefore(userSpecific, groupSpecific), "user beats group at equal context")
	assert.True(t, rankBefore(groupSpecific, userGlobal), "specific context beats global regardless of source")
	assert.True(t, rankBefore(groupSpecific, farGroupSpecific), "nearer group wins")
	assert.False(t, rankBefore(farGroupSpecific, groupSpecific))
}

func TestRankBefore_RangeTieGoesToGreaterValue(t *testing.T) {
	marketing := rangeCandidate("2500.00", 0, 2, "marketing")
	editor := rangeCandidate("2000.00", 0, 1, "editor")

	assert.True(t, rankBefore(marketing, editor))
	assert.False(t, rankBefore(editor, marketing))
}

func TestRankBefore_BooleanTieIsDeterministic(t *testing.T) {
	a := boolCandidate(SourceGroup, ContextSpecific, 0, 1, "reader")
	b := boolCandidate(SourceGroup, ContextSpecific, 0, 2, "reader")
	sameSource := boolCandidate(SourceGroup, ContextSpecific, 0, 1, "writer")

	assert.True(t, rankBefore(a, b), "lower source id first")
	assert.True(t, rankBefore(a, sameSource), "role name breaks the final tie")
	assert.False(t, rankBefore(sameSource, a))
}

func TestRankCandidates_StableOrder(t *testing.T) {
	candidates := []Candidate{
		boolCandidate(SourceGroup, ContextGlobal, 2, 3, "reader"),
		boolCandidate(SourceUser, ContextSpecific, 0, 1, "editor"),
		boolCandidate(SourceGroup, ContextSpecific, 1, 2, "proofreader"),
	}
	rankCandidates(candidates)

	assert.Equal(t, "editor", candidates[0].RoleName)
	assert.Equal(t, "proofreader", candidates[1].RoleName)
	assert.Equal(t, "reader", candidates[2].RoleName)
}

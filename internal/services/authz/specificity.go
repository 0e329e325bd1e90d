package authz

// Specificity encodes how strongly a candidate binds: context specificity
// dominates, then direct-user over group, then group proximity. Smaller is
// stronger. The packed form keeps the lexicographic order because each
// multiplier exceeds the maximum of the less significant dimensions
// (source bucket <= 2, distance <= MaxGroupDepth).
//
//	S = context_bucket*100 + source_bucket*10 + distance
func (c Candidate) Specificity() int {
	contextBucket := 1
	if c.ContextKind == ContextSpecific {
		contextBucket = 0
	}
	sourceBucket := 2
	if c.SourceKind == SourceUser {
		sourceBucket = 1
	}
	return contextBucket*100 + sourceBucket*10 + c.Distance
}

// rankBefore reports whether candidate a outranks candidate b for the same
// right. The primary order is ascending specificity. At equal specificity a
// range candidate with the greater value wins; boolean ties are immaterial
// and fall through to a deterministic (source id, role name) order so the
// trace output is stable.
func rankBefore(a, b Candidate) bool {
	sa, sb := a.Specificity(), b.Specificity()
	if sa != sb {
		return sa < sb
	}
	if a.RangeValue.Valid && b.RangeValue.Valid && !a.RangeValue.Decimal.Equal(b.RangeValue.Decimal) {
		return a.RangeValue.Decimal.GreaterThan(b.RangeValue.Decimal)
	}
	if a.SourceID != b.SourceID {
		return a.SourceID < b.SourceID
	}
	return a.RoleName < b.RoleName
}

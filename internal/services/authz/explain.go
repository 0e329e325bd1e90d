package authz

import (
	"context"
	"fmt"
)

// TraceStatus marks a trace entry as the winning rule or an outranked one.
type TraceStatus string

const (
	StatusApplied    TraceStatus = "APPLIED"
	StatusOverridden TraceStatus = "OVERRIDDEN"
)

// TraceEntry is one annotated candidate in an explanation.
type TraceEntry struct {
	Source      string      `json:"source"`
	Role        string      `json:"role"`
	Context     string      `json:"context"`
	Value       any         `json:"value"` // true for boolean rights, decimal.Decimal for range rights
	Specificity int         `json:"specificity"`
	Status      TraceStatus `json:"status"`
}

// Explanation is the diagnostic form of a permission decision.
// Value is nil when denied, true for boolean grants, and a decimal.Decimal
// for range grants.
type Explanation struct {
	Decision bool         `json:"decision"`
	Value    any          `json:"value"`
	Reason   string       `json:"reason"`
	Trace    []TraceEntry `json:"trace"`
}

// noRuleReason is the reason reported when no candidate grants the right.
const noRuleReason = "No rule found granting this right."

// Explain runs the resolver for a single right and annotates every candidate.
// The trace is stable: the APPLIED entry sorts first, the remainder by
// ascending specificity. Explain always enumerates fresh; a diagnostic that
// reported from a cache would not be able to cite the rules it skipped.
func (r *Resolver) Explain(ctx context.Context, userID int64, rightName string, contextID *int64) (*Explanation, error) {
	candidates, err := r.enumerate(ctx, userID, contextID, &rightName)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return &Explanation{
			Decision: false,
			Value:    nil,
			Reason:   noRuleReason,
			Trace:    []TraceEntry{},
		}, nil
	}

	rankCandidates(candidates)
	winner := candidates[0]

	trace := make([]TraceEntry, 0, len(candidates))
	for i, c := range candidates {
		status := StatusOverridden
		if i == 0 {
			status = StatusApplied
		}
		trace = append(trace, TraceEntry{
			Source:      c.SourceName,
			Role:        c.RoleName,
			Context:     c.ContextName,
			Value:       candidateValue(c),
			Specificity: c.Specificity(),
			Status:      status,
		})
	}

	return &Explanation{
		Decision: true,
		Value:    candidateValue(winner),
		Reason: fmt.Sprintf("Right granted by role '%s' from source '%s' in context '%s'.",
			winner.RoleName, winner.SourceName, winner.ContextName),
		Trace: trace,
	}, nil
}

// candidateValue normalizes the emitted value: boolean rights imply true,
// range rights propagate the stored numeric verbatim.
func candidateValue(c Candidate) any {
	if c.RangeValue.Valid {
		return c.RangeValue.Decimal
	}
	return true
}

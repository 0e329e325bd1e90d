package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/accesskit/rolemanager/internal/cache"
	"github.com/accesskit/rolemanager/internal/db/models"
	"github.com/accesskit/rolemanager/internal/logging"
	"github.com/accesskit/rolemanager/internal/repository"
)

// ResolvedRight is the winning value for one right. Boolean winners carry no
// numeric value; presence in the map means granted.
type ResolvedRight struct {
	Type  models.RightType    `json:"type"`
	Value decimal.NullDecimal `json:"value"`
}

// Snapshot is the cache payload: the full right→value map for one
// (user, context) pair, stamped with the permissions version observed when
// it was computed.
type Snapshot struct {
	Version int64                    `json:"version"`
	Rights  map[string]ResolvedRight `json:"rights"`
}

// Resolver computes effective rights. It holds only derived state; the
// backing store is authoritative and any cached map is discarded as soon as
// the version stamp disagrees with the counter.
type Resolver struct {
	db     bun.IDB
	groups repository.GroupRepository
	config repository.ConfigRepository
	log    *logging.Logger
	l2     cache.Store
}

// NewResolver creates a Resolver. l2 may be nil for request-scope-only
// caching.
func NewResolver(db bun.IDB, groups repository.GroupRepository, config repository.ConfigRepository, log *logging.Logger, l2 cache.Store) *Resolver {
	if l2 == nil {
		l2 = cache.Noop{}
	}
	return &Resolver{db: db, groups: groups, config: config, log: log, l2: l2}
}

// HasRight reports whether the right is granted to the user under the
// context. Absence from the resolved map is a denial; there is no explicit
// deny construct.
func (r *Resolver) HasRight(ctx context.Context, userID int64, rightName string, contextID *int64) (bool, error) {
	snap, err := r.Resolve(ctx, userID, contextID)
	if err != nil {
		return false, err
	}
	_, ok := snap.Rights[rightName]
	return ok, nil
}

// HasRightValue is HasRight with the winning range value. For boolean rights
// the returned decimal is zero; granted alone carries the answer.
func (r *Resolver) HasRightValue(ctx context.Context, userID int64, rightName string, contextID *int64) (bool, decimal.Decimal, error) {
	snap, err := r.Resolve(ctx, userID, contextID)
	if err != nil {
		return false, decimal.Decimal{}, err
	}
	resolved, ok := snap.Rights[rightName]
	if !ok {
		return false, decimal.Decimal{}, nil
	}
	if resolved.Value.Valid {
		return true, resolved.Value.Decimal, nil
	}
	return true, decimal.Decimal{}, nil
}

// Resolve returns the right→value snapshot for (user, context), serving from
// the request cache, then the process-wide cache (version-checked), then a
// fresh computation.
func (r *Resolver) Resolve(ctx context.Context, userID int64, contextID *int64) (*Snapshot, error) {
	key := cacheKey(userID, contextID)

	l1 := requestCacheFrom(ctx)
	if l1 != nil {
		if snap, ok := l1.get(key); ok {
			return snap, nil
		}
	}

	version, err := r.config.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("read permissions version: %w", err)
	}

	if data, ok := r.l2.Fetch(ctx, key); ok {
		snap := new(Snapshot)
		if err := json.Unmarshal(data, snap); err != nil {
			// A corrupt entry is treated as a miss.
			r.log.Warning(ctx, "discarding undecodable permission cache entry", models.LogContext{
				"key":   key,
				"error": err.Error(),
			})
		} else if snap.Version == version {
			if l1 != nil {
				l1.put(key, snap)
			}
			return snap, nil
		}
	}

	rights, err := r.resolveFresh(ctx, userID, contextID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Version: version, Rights: rights}

	if data, err := json.Marshal(snap); err == nil {
		r.l2.Store(ctx, key, data)
	}
	if l1 != nil {
		l1.put(key, snap)
	}
	return snap, nil
}

// resolveFresh enumerates all candidates and keeps the winner per right.
func (r *Resolver) resolveFresh(ctx context.Context, userID int64, contextID *int64) (map[string]ResolvedRight, error) {
	candidates, err := r.enumerate(ctx, userID, contextID, nil)
	if err != nil {
		return nil, err
	}

	winners := make(map[string]Candidate)
	for _, c := range candidates {
		current, ok := winners[c.RightName]
		if !ok || rankBefore(c, current) {
			winners[c.RightName] = c
		}
	}

	rights := make(map[string]ResolvedRight, len(winners))
	for name, winner := range winners {
		resolved := ResolvedRight{Type: winner.RightType}
		if winner.RightType == models.RightTypeRange {
			resolved.Value = winner.RangeValue
		}
		rights[name] = resolved
	}
	return rights, nil
}

// rankCandidates sorts a candidate slice strongest first.
func rankCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return rankBefore(candidates[i], candidates[j])
	})
}

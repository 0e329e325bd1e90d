package authz

import (
	"context"
	"strconv"
	"sync"
)

type requestCacheCtxKey struct{}

// RequestCache is the request-scoped permission cache. Entries are trusted
// for the lifetime of the request without a version check; the request is
// the consistency boundary.
type RequestCache struct {
	mu      sync.Mutex
	entries map[string]*Snapshot
}

// WithRequestCache attaches a fresh request cache to ctx. Callers serving a
// top-level request should derive all work from the returned context so that
// repeated permission checks within the request resolve at most once per
// (user, context) pair.
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestCacheCtxKey{}, &RequestCache{
		entries: make(map[string]*Snapshot),
	})
}

// requestCacheFrom extracts the request cache, or nil when the caller did
// not opt in.
func requestCacheFrom(ctx context.Context) *RequestCache {
	rc, _ := ctx.Value(requestCacheCtxKey{}).(*RequestCache)
	return rc
}

func (rc *RequestCache) get(key string) (*Snapshot, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	snap, ok := rc.entries[key]
	return snap, ok
}

func (rc *RequestCache) put(key string, snap *Snapshot) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries[key] = snap
}

// cacheKey builds the (user, context) cache key shared by both cache levels.
func cacheKey(userID int64, contextID *int64) string {
	ctxPart := "global"
	if contextID != nil {
		ctxPart = strconv.FormatInt(*contextID, 10)
	}
	return "rolemanager:perm:" + strconv.FormatInt(userID, 10) + ":" + ctxPart
}

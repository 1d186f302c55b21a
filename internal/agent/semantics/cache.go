package semantics

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

const snapshotKey = "snapshot"

// CachedProvider introspects through next and keeps the merged result for
// ttl. When a refresh fails the last good snapshot, or base, is served.
type CachedProvider struct {
	next  Provider
	base  Snapshot
	cache *ttlcache.Cache[string, Snapshot]
	// mu collapses concurrent refreshes into one.
	mu       sync.Mutex
	lastGood *Snapshot
}

func NewCachedProvider(next Provider, base Snapshot, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		base:  base,
		cache: ttlcache.New(ttlcache.WithTTL[string, Snapshot](ttl)),
	}
}

// Snapshot implements Provider.
func (p *CachedProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	if item := p.cache.Get(snapshotKey); item != nil {
		return item.Value(), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if item := p.cache.Get(snapshotKey); item != nil {
		return item.Value(), nil
	}

	fresh, err := p.next.Snapshot(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Schema introspection failed, serving previous snapshot")
		if p.lastGood != nil {
			return *p.lastGood, nil
		}
		return p.base, nil
	}

	fresh.Semantics = Merge(fresh.Semantics, p.base.Semantics)
	p.cache.Set(snapshotKey, fresh, ttlcache.DefaultTTL)
	p.lastGood = &fresh
	return fresh, nil
}

// Invalidate drops the cached snapshot so the next call introspects again.
func (p *CachedProvider) Invalidate() {
	p.cache.Delete(snapshotKey)
}

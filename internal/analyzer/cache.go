package analyzer

import (
	"fmt"

	"github.com/clay-lang/claycore/internal/env"
	"github.com/clay-lang/claycore/internal/values"
)

// cacheKey identifies one analyze_one/analyze_multi call by the triple
// spec.md §4.2 memoizes on: expression identity, environment identity,
// and wanted arity. Expression and environment identity are Go pointer
// identity, formatted the way internal/types' interner keys its buckets.
type cacheKey struct {
	expr   string
	env    string
	arity  int
}

func makeCacheKey(exprPtr any, e *env.Env, arity int) cacheKey {
	return cacheKey{
		expr:  fmt.Sprintf("%p", exprPtr),
		env:   fmt.Sprintf("%p", e),
		arity: arity,
	}
}

// cache is the analyzer's memo table plus its caching-disabler counter
// (spec.md §9 "Caching disabler as a scoped guard").
type cache struct {
	entries  map[cacheKey]values.MultiPValue
	disabled int
}

func newCache() *cache {
	return &cache{entries: make(map[cacheKey]values.MultiPValue)}
}

// Get consults the cache unless a disabler is active.
func (c *cache) Get(k cacheKey) (values.MultiPValue, bool) {
	if c.disabled > 0 {
		return nil, false
	}
	v, ok := c.entries[k]
	return v, ok
}

// Put inserts unless a disabler is active.
func (c *cache) Put(k cacheKey, v values.MultiPValue) {
	if c.disabled > 0 {
		return
	}
	c.entries[k] = v
}

// CachingDisabler is a stacked scope object: construction increments the
// cache's disable counter, Close decrements it. While any disabler is
// live, analyze_one/analyze_multi neither insert nor consult cache
// entries — required where the same expression yields different results
// under different pattern bindings (variant instance resolution, alias
// indexing bodies).
type CachingDisabler struct {
	c *cache
}

// PushCachingDisabler returns an active disabler; callers must Close it
// (typically via defer) to restore normal caching.
func (a *Analyzer) PushCachingDisabler() *CachingDisabler {
	a.cache.disabled++
	return &CachingDisabler{c: a.cache}
}

// Close pops this disabler, re-enabling caching once every other pushed
// disabler has also closed.
func (d *CachingDisabler) Close() {
	if d.c.disabled > 0 {
		d.c.disabled--
	}
}

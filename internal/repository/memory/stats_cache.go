package memory

import (
	"time"

	"atomics-registration-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// StatsCache keeps the aggregate dashboard numbers for a short while; they are
// recomputed with several GROUP BY queries.
type StatsCache struct {
	cache *cache.Cache
}

func NewStatsCache(ttl time.Duration) *StatsCache {
	return &StatsCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *StatsCache) Save(kind entity.RegistrationKind, stats *entity.RegistrationStats) {
	c.cache.Set(string(kind), stats, cache.DefaultExpiration)
}

func (c *StatsCache) Get(kind entity.RegistrationKind) (*entity.RegistrationStats, bool) {
	if x, found := c.cache.Get(string(kind)); found {
		return x.(*entity.RegistrationStats), true
	}
	return nil, false
}

func (c *StatsCache) Invalidate(kind entity.RegistrationKind) {
	c.cache.Delete(string(kind))
}

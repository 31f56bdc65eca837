package userkit

import (
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/puzpuzpuz/xsync/v3"
)

// accessCache keeps Access snapshots keyed by user ID and a per-user version.
// Every mutation issued through the Service bumps the version, so a snapshot
// taken before the mutation can no longer be looked up. The TTL bounds how long
// changes made by other processes stay invisible.
type accessCache struct {
	entries  *lru.LRU[string, *Access]
	versions *xsync.MapOf[string, uint64]
}

func newAccessCache(size int, ttl time.Duration) *accessCache {
	if size <= 0 {
		size = 1024
	}
	return &accessCache{
		entries:  lru.NewLRU[string, *Access](size, nil, ttl),
		versions: xsync.NewMapOf[string, uint64](),
	}
}

func (c *accessCache) key(userID string) string {
	version, _ := c.versions.Load(userID)
	return userID + "@" + strconv.FormatUint(version, 10)
}

func (c *accessCache) get(userID string) (*Access, bool) {
	return c.entries.Get(c.key(userID))
}

// put stores a snapshot under the version observed before it was loaded.
// A snapshot loaded while a mutation was in flight is stored under a version
// that is already stale and is never returned.
func (c *accessCache) put(key string, access *Access) {
	c.entries.Add(key, access)
}

func (c *accessCache) invalidate(userID string) {
	c.versions.Compute(userID, func(old uint64, loaded bool) (uint64, bool) {
		return old + 1, false
	})
}

func (c *accessCache) len() int {
	return c.entries.Len()
}

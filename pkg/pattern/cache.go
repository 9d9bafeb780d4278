package pattern

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Sumatoshi-tech/pyimports/pkg/module"
)

// DefaultCacheSize bounds the number of compiled sets kept by a Cache.
const DefaultCacheSize = 64

// Cache memoises compiled sets by identifier. A cached set is equivalent to
// one returned by New for the same identifier. Safe for concurrent use.
type Cache struct {
	sets *lru.Cache[module.Identifier, *Set]
}

// NewCache creates a cache holding at most size sets. Non-positive sizes use
// DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}

	sets, err := lru.New[module.Identifier, *Set](size)
	if err != nil {
		// lru.New only fails for non-positive sizes, which are replaced above.
		panic(err)
	}

	return &Cache{sets: sets}
}

// Get returns the set for id, compiling it on first use.
func (c *Cache) Get(id module.Identifier) *Set {
	if set, ok := c.sets.Get(id); ok {
		return set
	}

	set := New(id)
	c.sets.Add(id, set)

	return set
}


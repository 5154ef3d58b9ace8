package style

import (
	"container/list"
	"sync"

	"github.com/abhisek/lessonloop/internal/preference"
)

// DefaultCacheSize bounds the number of users whose directives are kept.
const DefaultCacheSize = 1000

type cacheEntry struct {
	user        string
	changeCount uint64
	directives  string
}

// Cache is a bounded LRU of composed directives keyed by user. An entry
// is reused only while the snapshot's ChangeCount matches.
type Cache struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List
	items map[string]*list.Element
}

// NewCache creates a cache holding at most size users. size <= 0 means
// DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{cap: size, ll: list.New(), items: make(map[string]*list.Element)}
}

// Directives returns the directives for user at snapshot s and reports
// whether they had to be regenerated.
func (c *Cache) Directives(user string, s preference.Snapshot) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[user]; ok {
		e := el.Value.(*cacheEntry)
		if e.changeCount == s.ChangeCount {
			c.ll.MoveToFront(el)
			return e.directives, false
		}
		e.changeCount = s.ChangeCount
		e.directives = Compose(s)
		c.ll.MoveToFront(el)
		return e.directives, true
	}

	e := &cacheEntry{user: user, changeCount: s.ChangeCount, directives: Compose(s)}
	c.items[user] = c.ll.PushFront(e)
	if c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).user)
	}
	return e.directives, true
}

// Len returns the number of cached users.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

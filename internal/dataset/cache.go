package dataset

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes Load by input content. Loading is a pure function of the
// bytes and options, and tables are immutable, so cached tables are shared.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]*Table
	order   []uint64
	max     int
	group   singleflight.Group
}

// NewCache returns a cache holding at most size tables (oldest evicted first).
// size <= 0 means 16.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 16
	}
	return &Cache{entries: make(map[uint64]*Table), max: size}
}

// Load returns the memoized table for (name, data, opt), loading it on a miss.
// Concurrent loads of the same content are collapsed into one.
func (c *Cache) Load(name string, data []byte, opt Options) (*Table, error) {
	key := cacheKey(name, data, opt)
	c.mu.Lock()
	if t, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		t, err := Load(name, data, opt)
		if err != nil {
			return nil, err
		}
		c.put(key, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) put(key uint64, t *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return
	}
	for len(c.order) >= c.max {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = t
	c.order = append(c.order, key)
}

func cacheKey(name string, data []byte, opt Options) uint64 {
	d := xxhash.New()
	_, _ = fmt.Fprintf(d, "%s\x00%d\x00%d\x00%s\x00%d\x00", name, opt.Delimiter, opt.MaxRows, opt.SheetName, opt.SheetIndex)
	_, _ = d.Write(data)
	return d.Sum64()
}

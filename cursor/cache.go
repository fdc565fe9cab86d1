package cursor

import (
	"sort"

	"github.com/nrfta/catalog-go"
)

// Cache maps page numbers to the cursor after that page's last product,
// for a single filter key. It is not safe for concurrent use; Paginator
// guards it.
type Cache struct {
	key     string
	cursors map[int]*catalog.CursorPosition
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{cursors: make(map[int]*catalog.CursorPosition)}
}

// Key returns the filter key the cached cursors belong to.
func (c *Cache) Key() string {
	return c.key
}

// Reset drops every cursor and binds the cache to key.
func (c *Cache) Reset(key string) {
	c.key = key
	c.cursors = make(map[int]*catalog.CursorPosition)
}

// Put stores the cursor after page.
func (c *Cache) Put(page int, pos *catalog.CursorPosition) {
	c.cursors[page] = pos
}

// Get returns the cursor after page.
func (c *Cache) Get(page int) (*catalog.CursorPosition, bool) {
	pos, ok := c.cursors[page]
	return pos, ok
}

// Nearest returns the first page that must be fetched to reach target and
// the cursor to start it after. With the predecessor cached that is target
// itself; otherwise it is the page after the closest cached predecessor, or
// page 1 with a nil cursor.
func (c *Cache) Nearest(target int) (int, *catalog.CursorPosition) {
	best := 0
	for n := range c.cursors {
		if n < target && n > best {
			best = n
		}
	}
	if best == 0 {
		return 1, nil
	}
	return best + 1, c.cursors[best]
}

// Len returns the number of cached cursors.
func (c *Cache) Len() int {
	return len(c.cursors)
}

// Pages returns the cached page numbers in ascending order.
func (c *Cache) Pages() []int {
	pages := make([]int, 0, len(c.cursors))
	for n := range c.cursors {
		pages = append(pages, n)
	}
	sort.Ints(pages)
	return pages
}

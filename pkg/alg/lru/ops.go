package lru

import "time"

// Get retrieves a value from the cache. Expired entries are removed and
// reported as misses.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	ent, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return zero, false
	}

	if c.isExpired(ent) {
		c.remove(ent)
		c.expired.Add(1)
		c.misses.Add(1)

		return zero, false
	}

	c.hits.Add(1)
	c.moveToFront(ent)

	return ent.value, true
}

// Put adds or updates a key-value pair in the cache and restarts its TTL.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.expiry()

	if ent, ok := c.entries[key]; ok {
		ent.value = value
		ent.expiresAt = expiresAt
		c.moveToFront(ent)

		return
	}

	for len(c.entries) >= c.maxEntries && c.tail != nil {
		c.remove(c.tail)
	}

	ent := &entry[K, V]{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	}

	c.entries[key] = ent
	c.addToFront(ent)
}

// GetOrLoad returns the cached value for key, or calls load, caches its
// result and returns it. load runs without the cache lock held; concurrent
// misses for the same key may each call it. Errors are not cached.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := load()
	if err != nil {
		var zero V

		return zero, err
	}

	c.Put(key, value)

	return value, nil
}

// Remove deletes key from the cache.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.remove(ent)
	}
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.head = nil
	c.tail = nil
}

func (c *Cache[K, V]) expiry() (expiresAt time.Time) {
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	return expiresAt
}

func (c *Cache[K, V]) isExpired(ent *entry[K, V]) bool {
	return !ent.expiresAt.IsZero() && !c.now().Before(ent.expiresAt)
}

// remove unlinks an entry and deletes it from the index.
func (c *Cache[K, V]) remove(ent *entry[K, V]) {
	c.removeFromList(ent)
	delete(c.entries, ent.key)
}

// moveToFront moves an entry to the head of the LRU list.
func (c *Cache[K, V]) moveToFront(ent *entry[K, V]) {
	if ent == c.head {
		return
	}

	c.removeFromList(ent)
	c.addToFront(ent)
}

// addToFront adds an entry at the head of the LRU list.
func (c *Cache[K, V]) addToFront(ent *entry[K, V]) {
	ent.prev = nil
	ent.next = c.head

	if c.head != nil {
		c.head.prev = ent
	}

	c.head = ent

	if c.tail == nil {
		c.tail = ent
	}
}

// removeFromList removes an entry from the LRU list.
func (c *Cache[K, V]) removeFromList(ent *entry[K, V]) {
	if ent.prev != nil {
		ent.prev.next = ent.next
	} else {
		c.head = ent.next
	}

	if ent.next != nil {
		ent.next.prev = ent.prev
	} else {
		c.tail = ent.prev
	}

	ent.prev = nil
	ent.next = nil
}

package cube

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// unitKey identifies a compiled unit: the owning table's identity plus a
// content fingerprint of the rule body. Two sources with the same body but
// different owning tables get distinct keys, because generated unit names
// are scoped per table.
type unitKey struct {
	table   string
	version string
	sum     [sha256.Size]byte
}

func keyOf(rs RuleSource) unitKey {
	return unitKey{
		table:   rs.Table.Name,
		version: rs.Table.Version,
		sum:     sha256.Sum256([]byte(rs.Src)),
	}
}

// flightKey flattens a unitKey for the singleflight group.
func (k unitKey) flightKey() string {
	return k.table + "\x00" + k.version + "\x00" + hex.EncodeToString(k.sum[:])
}

// Cache stores compiled units keyed by rule source fingerprint and owning
// table identity. It guarantees at most one compilation per key: under
// concurrent misses for the same key, one caller compiles while the rest
// wait for its result, success or failure alike.
//
// Failed compilations are not retained; the next request for the key
// compiles from scratch.
type Cache struct {
	mu     sync.RWMutex
	units  map[unitKey]Unit
	flight singleflight.Group
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{units: map[unitKey]Unit{}}
}

// GetOrCompile returns the cached unit for the rule source, compiling it
// with compile on a miss. All concurrent callers for the same key observe
// the same unit, or the same error.
//
// compile must not be holding the caller's own locks across this call: a
// slow compile blocks only requests for the same key, never cache hits for
// other keys.
func (c *Cache) GetOrCompile(rs RuleSource, compile func(RuleSource) (Unit, error)) (Unit, error) {
	k := keyOf(rs)

	c.mu.RLock()
	u, ok := c.units[k]
	c.mu.RUnlock()
	if ok {
		return u, nil
	}

	v, err, _ := c.flight.Do(k.flightKey(), func() (interface{}, error) {
		// A winner that finished between our read and this call may have
		// stored the unit already.
		c.mu.RLock()
		u, ok := c.units[k]
		c.mu.RUnlock()
		if ok {
			return u, nil
		}

		u, err := compile(rs)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.units[k] = u
		c.mu.Unlock()
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Unit), nil
}

// Invalidate evicts every unit keyed to the given table name and version,
// returning the number of entries removed. It is called when a table
// version is redefined or retired.
func (c *Cache) Invalidate(name, version string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.units {
		if k.table == name && k.version == version {
			delete(c.units, k)
			n++
		}
	}
	return n
}

// Len is the number of cached units.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.units)
}

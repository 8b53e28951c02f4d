package domain

import "sync"

// MaterialCatalog tracks the material codes that have a rule entry. An
// empty catalog accepts every code.
type MaterialCatalog struct {
	mu    sync.RWMutex
	codes map[uint16]bool
}

// NewMaterialCatalog creates a catalog seeded with codes.
func NewMaterialCatalog(codes ...uint16) *MaterialCatalog {
	c := &MaterialCatalog{
		codes: make(map[uint16]bool, len(codes)),
	}
	for _, code := range codes {
		c.codes[code] = true
	}
	return c
}

// Register adds a code to the catalog. Safe for concurrent use.
func (c *MaterialCatalog) Register(code uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[code] = true
}

// Exists reports whether code has a rule entry, or true when the catalog is
// empty. Safe for concurrent use.
func (c *MaterialCatalog) Exists(code uint16) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.codes) == 0 {
		return true
	}
	return c.codes[code]
}

// Len returns the number of registered codes. Safe for concurrent use.
func (c *MaterialCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.codes)
}

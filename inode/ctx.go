package inode

// ctxKey identifies the translator that owns a context slot. Any
// comparable value works; translators conventionally use their own
// *xlator.Base pointer, matching the C original's `xlator_t *` key.
type ctxKey any

// ctxSlot holds up to two machine words, interpreted as pointer-or-integer
// at the owning translator's discretion (spec.md §3).
type ctxSlot struct {
	v1, v2 uint64
	p1, p2 any
	set1   bool
	set2   bool
}

// ctxVector is the per-inode array of context slots, one per
// translator, allocated lazily on first set (spec.md §4.2 "Context
// slots").
type ctxVector struct {
	slots map[ctxKey]*ctxSlot
}

func newCtxVector() ctxVector {
	return ctxVector{}
}

func (c *ctxVector) slot(key ctxKey, create bool) *ctxSlot {
	if c.slots == nil {
		if !create {
			return nil
		}
		c.slots = make(map[ctxKey]*ctxSlot)
	}
	s := c.slots[key]
	if s == nil && create {
		s = &ctxSlot{}
		c.slots[key] = s
	}
	return s
}

// Get1 returns the first word of key's slot and whether it was set.
func (c *ctxVector) Get1(key ctxKey) (uint64, bool) {
	s := c.slot(key, false)
	if s == nil {
		return 0, false
	}
	return s.v1, s.set1
}

// Get2 returns both words of key's slot.
func (c *ctxVector) Get2(key ctxKey) (uint64, uint64, bool) {
	s := c.slot(key, false)
	if s == nil {
		return 0, 0, false
	}
	return s.v1, s.v2, s.set1 && s.set2
}

// Set1 stores the first word of key's slot, allocating it if needed.
func (c *ctxVector) Set1(key ctxKey, v uint64) {
	s := c.slot(key, true)
	s.v1, s.set1 = v, true
}

// Set2 stores both words of key's slot, allocating it if needed.
func (c *ctxVector) Set2(key ctxKey, v1, v2 uint64) {
	s := c.slot(key, true)
	s.v1, s.set1 = v1, true
	s.v2, s.set2 = v2, true
}

// GetPtr1/SetPtr1 are the pointer-typed counterparts of Get1/Set1, for
// translators that prefer to stash a Go pointer rather than encode one as
// a uint64 (unsafe.Pointer round-tripping is avoided entirely).
func (c *ctxVector) GetPtr1(key ctxKey) (any, bool) {
	s := c.slot(key, false)
	if s == nil {
		return nil, false
	}
	return s.p1, s.set1
}

func (c *ctxVector) SetPtr1(key ctxKey, v any) {
	s := c.slot(key, true)
	s.p1, s.set1 = v, true
}

func (c *ctxVector) GetPtr2(key ctxKey) (any, any, bool) {
	s := c.slot(key, false)
	if s == nil {
		return nil, nil, false
	}
	return s.p1, s.p2, s.set1 && s.set2
}

func (c *ctxVector) SetPtr2(key ctxKey, v1, v2 any) {
	s := c.slot(key, true)
	s.p1, s.set1 = v1, true
	s.p2, s.set2 = v2, true
}

// Del removes key's slot entirely.
func (c *ctxVector) Del(key ctxKey) {
	delete(c.slots, key)
}

// Reset clears key's slot back to unset without removing it from the map
// (so a subsequent Get reports "not set" rather than a stale value).
func (c *ctxVector) Reset(key ctxKey) {
	s := c.slot(key, false)
	if s == nil {
		return
	}
	*s = ctxSlot{}
}

// Keys returns every translator key with an allocated slot.
func (c *ctxVector) Keys() []ctxKey {
	keys := make([]ctxKey, 0, len(c.slots))
	for k := range c.slots {
		keys = append(keys, k)
	}
	return keys
}

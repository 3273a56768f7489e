package storage

import "sort"

// ValuePointer references a value's location in the log. Values at or
// below the engine's inline threshold also carry an in-memory copy so reads
// never touch disk; larger values carry only the on-disk coordinates.
type ValuePointer struct {
	Offset uint64
	Length uint32
	Inline []byte // non-nil for inline-cached values
}

// IsInline reports whether p carries an in-memory copy of its value.
func (p ValuePointer) IsInline() bool { return p.Inline != nil }

// directory is the in-memory key to ValuePointer map: a sorted []string of
// keys kept in sync with a plain map for O(1) point lookups, so range scans
// can walk keys in order without a tree structure.
type directory struct {
	keys []string
	ptrs map[string]ValuePointer
}

func newDirectory() *directory {
	return &directory{ptrs: make(map[string]ValuePointer)}
}

func (d *directory) search(key string) int {
	return sort.Search(len(d.keys), func(i int) bool { return d.keys[i] >= key })
}

// Get returns the pointer stored for key, if any.
func (d *directory) Get(key []byte) (ValuePointer, bool) {
	p, ok := d.ptrs[string(key)]
	return p, ok
}

// Put inserts or replaces the pointer for key.
func (d *directory) Put(key []byte, ptr ValuePointer) {
	k := string(key)
	if _, exists := d.ptrs[k]; !exists {
		i := d.search(k)
		d.keys = append(d.keys, "")
		copy(d.keys[i+1:], d.keys[i:])
		d.keys[i] = k
	}
	d.ptrs[k] = ptr
}

// Delete removes key from the directory, reporting whether it was present.
func (d *directory) Delete(key []byte) bool {
	k := string(key)
	if _, ok := d.ptrs[k]; !ok {
		return false
	}
	delete(d.ptrs, k)
	i := d.search(k)
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	return true
}

// Len reports the number of live keys.
func (d *directory) Len() int { return len(d.keys) }

// Range calls fn for every key in [start, end) in ascending order, stopping
// early if fn returns false. A nil end means "to the end of the directory".
func (d *directory) Range(start, end []byte, fn func(key []byte, ptr ValuePointer) bool) {
	i := d.search(string(start))
	for ; i < len(d.keys); i++ {
		k := d.keys[i]
		if end != nil && k >= string(end) {
			return
		}
		if !fn([]byte(k), d.ptrs[k]) {
			return
		}
	}
}

// Snapshot returns a copy of the key-to-pointer map; nothing in this
// package calls it, and it is not used on any hot path.
func (d *directory) Snapshot() map[string]ValuePointer {
	out := make(map[string]ValuePointer, len(d.ptrs))
	for k, v := range d.ptrs {
		out[k] = v
	}
	return out
}

package storage

// Region wraps a DB and prepends a fixed named prefix to all keys.
// Each logical state region (collection cell, token vector, holders map,
// block log, ...) gets its own Region over one shared database, so
// regions stay independently addressable without separate files.
type Region struct {
	inner  DB
	prefix []byte
}

// NewRegion creates a region named by prefix over inner. The "/" byte
// terminates the name so sibling region names can never collide.
func NewRegion(inner DB, name string) *Region {
	return &Region{inner: inner, prefix: append([]byte(name), '/')}
}

// prefixed returns key with the region prefix prepended.
func (r *Region) prefixed(key []byte) []byte {
	out := make([]byte, len(r.prefix)+len(key))
	copy(out, r.prefix)
	copy(out[len(r.prefix):], key)
	return out
}

// Get retrieves a value by key.
func (r *Region) Get(key []byte) ([]byte, error) {
	return r.inner.Get(r.prefixed(key))
}

// Put stores a key-value pair.
func (r *Region) Put(key, value []byte) error {
	return r.inner.Put(r.prefixed(key), value)
}

// Delete removes a key.
func (r *Region) Delete(key []byte) error {
	return r.inner.Delete(r.prefixed(key))
}

// Has checks if a key exists.
func (r *Region) Has(key []byte) (bool, error) {
	return r.inner.Has(r.prefixed(key))
}

// ForEach iterates over all keys with the given prefix within the
// region. The callback sees keys with the region prefix stripped, so
// callers only ever observe their logical keyspace.
func (r *Region) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	full := r.prefixed(prefix)
	return r.inner.ForEach(full, func(key, value []byte) error {
		return fn(key[len(r.prefix):], value)
	})
}

// Close is a no-op: the outer DB manages its own lifecycle.
func (r *Region) Close() error {
	return nil
}

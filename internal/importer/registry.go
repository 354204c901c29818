package importer

import "sync"

// HashRegistry tracks content hashes held by in-flight imports so the same
// content is committed at most once at a time.
type HashRegistry struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

// NewHashRegistry creates an empty registry.
func NewHashRegistry() *HashRegistry {
	return &HashRegistry{inFlight: make(map[string]bool)}
}

// TryAcquire registers hash and reports whether the caller now holds it.
func (r *HashRegistry) TryAcquire(hash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight[hash] {
		return false
	}
	r.inFlight[hash] = true
	return true
}

// Release drops the registration for hash.
func (r *HashRegistry) Release(hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, hash)
}

// Len returns the number of hashes currently held.
func (r *HashRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

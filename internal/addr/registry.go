package addr

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	shardBits = 6
	numShards = 1 << shardBits
	shardMask = numShards - 1
)

type shard struct {
	mu      sync.RWMutex
	entries map[uintptr]uint32
}

// Registry is a sharded address → index map. It is safe for concurrent use.
type Registry struct {
	shards [numShards]shard
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].entries = make(map[uintptr]uint32)
	}
	return r
}

func (r *Registry) shardFor(addr uintptr) *shard {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(addr))
	return &r.shards[xxhash.Sum64(buf[:])&shardMask]
}

// Insert maps addr to idx. If addr is already mapped, nothing changes and the
// existing index is returned with ok=false.
func (r *Registry) Insert(addr uintptr, idx uint32) (existing uint32, ok bool) {
	s := r.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, found := s.entries[addr]; found {
		return cur, false
	}
	s.entries[addr] = idx
	return idx, true
}

// Lookup returns the index mapped to addr.
func (r *Registry) Lookup(addr uintptr) (uint32, bool) {
	s := r.shardFor(addr)
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.entries[addr]
	return idx, ok
}

// Remove deletes the mapping for addr only if it points at idx.
func (r *Registry) Remove(addr uintptr, idx uint32) bool {
	s := r.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[addr]
	if !ok || cur != idx {
		return false
	}
	delete(s.entries, addr)
	return true
}

// Len returns the number of mapped addresses.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

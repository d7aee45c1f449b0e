package params

import "sync"

// Store holds two complete parameter sets: a write copy mutated by control
// threads and a read copy published to the render thread by Swap. Writes are
// serialized by a short mutex; Swap flips the copies and reseeds the new
// write copy so no write is ever lost.
type Store struct {
	mu    sync.Mutex
	bufs  [2]buffer
	write int
	seq   uint64 // last sequence number handed out
	mark  uint64 // seq at the previous Swap
}

type buffer struct {
	set Set
	seq [Count]uint64
}

// NewStore returns a Store whose read and write copies both hold initial.
func NewStore(initial Set) *Store {
	s := &Store{}
	s.bufs[0].set = initial
	s.bufs[1].set = initial
	return s
}

// Set writes one field into the write copy. The value is validated and
// clamped per the parameter table; rejected writes leave the store untouched.
func (s *Store) Set(id ID, v float32) error {
	clean, err := id.Sanitize(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.seq++
	b := &s.bufs[s.write]
	b.set.values[id] = clean
	b.seq[id] = s.seq
	s.mu.Unlock()
	return nil
}

// Peek returns the latest written value of id, including writes not yet
// published by Swap.
func (s *Store) Peek(id ID) float32 {
	if !id.Valid() {
		return 0
	}
	s.mu.Lock()
	v := s.bufs[s.write].set.values[id]
	s.mu.Unlock()
	return v
}

// Swap publishes the write copy and returns it along with the IDs written
// since the previous Swap. The returned Set is a private copy; writes issued
// after Swap returns are not visible in it.
func (s *Store) Swap() (Set, []ID) {
	s.mu.Lock()
	published := s.write
	next := 1 - published
	pub := &s.bufs[published]

	var dirty []ID
	for id := ID(0); id < Count; id++ {
		if pub.seq[id] > s.mark {
			dirty = append(dirty, id)
		}
	}
	s.mark = s.seq

	// The next write copy starts from everything just published.
	s.bufs[next] = *pub
	s.write = next
	out := pub.set
	s.mu.Unlock()
	return out, dirty
}

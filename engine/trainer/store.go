package trainer

import (
	"sync"
	"sync/atomic"

	"github.com/senvr/senvr/engine/model"
)

type version struct {
	model model.Model
	gen   uint64
}

// Store holds the live model of one scope. Readers load the current version without
// locking; writers replace it with CompareAndSwap, which serializes only the pointer
// swap.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[version]
}

func NewStore() *Store {
	s := &Store{}
	s.current.Store(&version{})
	return s
}

// Current returns the live model and its generation. ok is false until the first
// model has been stored.
func (s *Store) Current() (m model.Model, gen uint64, ok bool) {
	v := s.current.Load()
	return v.model, v.gen, v.gen > 0
}

// Ready reports whether a model is available for generation.
func (s *Store) Ready() bool {
	return s.current.Load().gen > 0
}

// Generation returns the number of replacements made so far.
func (s *Store) Generation() uint64 {
	return s.current.Load().gen
}

// CompareAndSwap installs m if the live model is still at generation gen. It returns
// false when another writer replaced the model first.
func (s *Store) CompareAndSwap(gen uint64, m model.Model) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.Load().gen != gen {
		return false
	}
	s.current.Store(&version{model: m, gen: gen + 1})
	return true
}

package trainer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/senvr/senvr/engine/corpus"
	"github.com/senvr/senvr/engine/model"
	"github.com/senvr/senvr/engine/worker"
)

// GlobalScope names the scope shared by every author.
const GlobalScope = "global"

// Mode selects how units are routed to scopes.
type Mode string

const (
	ModeGlobal Mode = "global"
	ModeAuthor Mode = "author"
)

// Scope is one independently trained model with its own buffer and coordinator.
type Scope struct {
	Name        string
	Buffer      *corpus.Buffer
	Coordinator *Coordinator
	Store       *Store
}

// RunCycle trains the scope on whatever its buffer currently holds.
func (s *Scope) RunCycle(ctx context.Context) (CycleResult, error) {
	return s.Coordinator.RunCycle(ctx, s.Buffer)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Mode       Mode
	SampleSize int
	Provider   model.Provider
	Pool       *worker.Pool
	Metrics    *Metrics
}

// Registry owns the global scope and lazily created per-author scopes.
type Registry struct {
	opts    RegistryOptions
	global  *Scope
	mu      sync.RWMutex
	authors map[corpus.AuthorID]*Scope
	closed  bool
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Mode == "" {
		opts.Mode = ModeGlobal
	}
	if opts.Pool == nil {
		opts.Pool = worker.NewPool(0)
	}
	r := &Registry{opts: opts, authors: make(map[corpus.AuthorID]*Scope)}
	r.global = r.newScope(GlobalScope)
	return r
}

func (r *Registry) newScope(name string) *Scope {
	store := NewStore()
	return &Scope{
		Name:        name,
		Buffer:      corpus.NewBuffer(r.opts.SampleSize),
		Coordinator: NewCoordinator(name, r.opts.Provider, r.opts.Pool, store, r.opts.Metrics),
		Store:       store,
	}
}

func (r *Registry) Mode() Mode {
	return r.opts.Mode
}

func (r *Registry) Provider() model.Provider {
	return r.opts.Provider
}

func (r *Registry) Pool() *worker.Pool {
	return r.opts.Pool
}

// Global returns the shared scope.
func (r *Registry) Global() *Scope {
	return r.global
}

// ForAuthor returns the scope of author, creating it on first use.
func (r *Registry) ForAuthor(author corpus.AuthorID) *Scope {
	r.mu.RLock()
	scope, ok := r.authors[author]
	r.mu.RUnlock()
	if ok {
		return scope
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if scope, ok := r.authors[author]; ok {
		return scope
	}
	scope = r.newScope(string(author))
	if r.closed {
		scope.Buffer.Close()
	}
	r.authors[author] = scope
	return scope
}

// Reserved reports whether author cannot own a scope because its id collides with the
// global scope name.
func (r *Registry) Reserved(author corpus.AuthorID) bool {
	return r.opts.Mode == ModeAuthor && string(author) == GlobalScope
}

// Lookup resolves a scope by name: "" or "global" for the shared scope, otherwise an
// author scope that has already been created.
func (r *Registry) Lookup(name string) (*Scope, bool) {
	if name == "" || name == GlobalScope {
		return r.global, true
	}
	return r.LookupAuthor(corpus.AuthorID(name))
}

// LookupAuthor returns an existing author scope without creating one.
func (r *Registry) LookupAuthor(author corpus.AuthorID) (*Scope, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scope, ok := r.authors[author]
	return scope, ok
}

// Select returns the scope a unit trains into under the configured mode.
func (r *Registry) Select(unit corpus.TextUnit) *Scope {
	if r.opts.Mode == ModeAuthor {
		return r.ForAuthor(unit.Author)
	}
	return r.global
}

// Scopes lists the global scope followed by author scopes sorted by name.
func (r *Registry) Scopes() []*Scope {
	r.mu.RLock()
	authors := make([]*Scope, 0, len(r.authors))
	for _, scope := range r.authors {
		authors = append(authors, scope)
	}
	r.mu.RUnlock()
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })
	return append([]*Scope{r.global}, authors...)
}

// FlushAll runs one cycle on every scope. Cycle errors are joined.
func (r *Registry) FlushAll(ctx context.Context) error {
	var errs []error
	for _, scope := range r.Scopes() {
		if _, err := scope.RunCycle(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush scope %s: %w", scope.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close stops intake on every scope, including author scopes created afterwards.
// Queued units stay drainable so a final FlushAll still trains them.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	for _, scope := range r.Scopes() {
		scope.Buffer.Close()
	}
}

// Rate sums the smoothed units-per-second estimate across scopes.
func (r *Registry) Rate() float64 {
	var rate float64
	for _, scope := range r.Scopes() {
		rate += scope.Coordinator.Counters().Rate
	}
	return rate
}

// Total sums the processed units across scopes.
func (r *Registry) Total() uint64 {
	var total uint64
	for _, scope := range r.Scopes() {
		total += scope.Coordinator.Counters().Total
	}
	return total
}

// AnyReady reports whether at least one scope can serve generation.
func (r *Registry) AnyReady() bool {
	for _, scope := range r.Scopes() {
		if scope.Store.Ready() {
			return true
		}
	}
	return false
}

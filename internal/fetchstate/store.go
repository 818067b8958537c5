// Package fetchstate tracks the fetch lifecycle of dashboard variables.
//
// Each variable is idle, loading, waiting, revalidating or in error. Query
// variables wait for their query parents to settle before they load; dynamic
// variables wait until no query variable is in flight. Every enqueue bumps a
// per-variable cycle ID so results of superseded fetches can be discarded.
package fetchstate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/pkg/core"
)

// State is the fetch state of a single variable.
type State string

// Fetch states.
const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StateWaiting      State = "waiting"
	StateRevalidating State = "revalidating"
	StateError        State = "error"
)

// InFlight reports whether a fetch is running or queued for the state.
func (s State) InFlight() bool {
	return s == StateLoading || s == StateWaiting || s == StateRevalidating
}

// Fetching reports whether a fetch should be running for the state.
func (s State) Fetching() bool {
	return s == StateLoading || s == StateRevalidating
}

// Context is the dashboard knowledge the store needs to schedule fetches.
type Context struct {
	// Dependencies is nil when the variable set has not been analysed yet.
	Dependencies *dag.DependencyContext
	Kinds        map[string]core.Kind
	// DynamicOrder lists dynamic variables in the order they should load.
	DynamicOrder []string
	// AllSelected is true when every variable has a value selected.
	AllSelected bool
}

// NewContext derives a Context from a dashboard and its dependency context.
func NewContext(d *core.Dashboard, deps *dag.DependencyContext) Context {
	fc := Context{
		Dependencies: deps,
		Kinds:        d.Kinds(),
		AllSelected:  true,
	}
	for i := range d.Variables {
		v := &d.Variables[i]
		if v.Kind == core.KindDynamic {
			fc.DynamicOrder = append(fc.DynamicOrder, v.Name)
		}
		if !v.HasSelection() {
			fc.AllSelected = false
		}
	}
	return fc
}

func (c Context) isQuery(name string) bool {
	return c.Kinds[name] == core.KindQuery
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	States      map[string]State
	LastUpdated map[string]time.Time
	CycleIDs    map[string]int
}

// Store holds fetch states. It is safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	states      map[string]State
	lastUpdated map[string]time.Time
	cycleIDs    map[string]int

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		states:      make(map[string]State),
		lastUpdated: make(map[string]time.Time),
		cycleIDs:    make(map[string]int),
		now:         time.Now,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize aligns the store with the current variable names. New names
// start idle, known names keep their state and everything else is dropped.
func (s *Store) Initialize(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]struct{}, len(names))
	for _, name := range names {
		keep[name] = struct{}{}
		if _, ok := s.states[name]; !ok {
			s.states[name] = StateIdle
		}
	}
	for name, st := range s.states {
		if _, ok := keep[name]; !ok {
			if st.Fetching() {
				inFlight.Dec()
			}
			delete(s.states, name)
		}
	}
	for name := range s.lastUpdated {
		if _, ok := keep[name]; !ok {
			delete(s.lastUpdated, name)
		}
	}
	for name := range s.cycleIDs {
		if _, ok := keep[name]; !ok {
			delete(s.cycleIDs, name)
		}
	}
}

// EnqueueAll schedules a fetch of every query and dynamic variable.
// Query variables without query parents start loading immediately, the
// rest wait. It is a no-op when fc has no dependency context.
func (s *Store) EnqueueAll(fc Context) {
	if fc.Dependencies == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range fc.Dependencies.Order {
		if !fc.isQuery(name) {
			continue
		}
		if s.hasQueryParents(name, fc) {
			s.set(name, StateWaiting, opEnqueueAll)
		} else {
			s.set(name, s.startState(name), opEnqueueAll)
		}
		s.cycleIDs[name]++
	}

	for _, name := range fc.DynamicOrder {
		if fc.AllSelected {
			s.set(name, s.startState(name), opEnqueueAll)
		} else {
			s.set(name, StateWaiting, opEnqueueAll)
		}
		s.cycleIDs[name]++
	}
}

// Complete marks name as fetched and starts whatever was waiting on it.
func (s *Store) Complete(name string, fc Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.set(name, StateIdle, opComplete)
	s.lastUpdated[name] = s.now()

	if fc.Dependencies != nil {
		for _, child := range fc.Dependencies.ChildrenOf(name) {
			if !fc.isQuery(child) || s.states[child] != StateWaiting {
				continue
			}
			if s.queryParentsSettled(child, fc) {
				s.set(child, s.startState(child), opComplete)
			}
		}
	}
	s.unlockDynamic(fc, opComplete)
}

// Fail marks name as failed. Its query descendants can no longer be
// fetched, so they return to idle.
func (s *Store) Fail(name string, fc Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.set(name, StateError, opFail)
	if fc.Dependencies != nil {
		for _, desc := range fc.Dependencies.DescendantsOf(name) {
			if fc.isQuery(desc) {
				s.set(desc, StateIdle, opFail)
			}
		}
	}
	s.unlockDynamic(fc, opFail)
}

// EnqueueDescendants schedules a refetch of every query variable that
// depends on name, directly or transitively, in topological order.
func (s *Store) EnqueueDescendants(name string, fc Context) {
	if fc.Dependencies == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, desc := range fc.Dependencies.DescendantsOf(name) {
		if !fc.isQuery(desc) {
			continue
		}
		s.cycleIDs[desc]++
		if s.queryParentsSettled(desc, fc) {
			s.set(desc, s.startState(desc), opEnqueueDescendants)
		} else {
			s.set(desc, StateWaiting, opEnqueueDescendants)
		}
	}
}

// State returns the state of name; unknown names are idle.
func (s *Store) State(name string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[name]; ok {
		return st
	}
	return StateIdle
}

// CycleID returns the current fetch cycle of name.
func (s *Store) CycleID(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycleIDs[name]
}

// IsCurrent reports whether a fetch started in cycleID is still the latest
// one for name.
func (s *Store) IsCurrent(name string, cycleID int) bool {
	return s.CycleID(name) == cycleID
}

// LastUpdated returns when name last completed a fetch.
func (s *Store) LastUpdated(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastUpdated[name]
	return t, ok
}

// Fetching returns the names from order that should be fetched now.
func (s *Store) Fetching(order []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, name := range order {
		if s.states[name].Fetching() {
			out = append(out, name)
		}
	}
	return out
}

// Busy reports whether any variable is loading, waiting or revalidating.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.states {
		if st.InFlight() {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the store contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		States:      make(map[string]State, len(s.states)),
		LastUpdated: make(map[string]time.Time, len(s.lastUpdated)),
		CycleIDs:    make(map[string]int, len(s.cycleIDs)),
	}
	for k, v := range s.states {
		snap.States[k] = v
	}
	for k, v := range s.lastUpdated {
		snap.LastUpdated[k] = v
	}
	for k, v := range s.cycleIDs {
		snap.CycleIDs[k] = v
	}
	return snap
}

// set must be called with mu held.
func (s *Store) set(name string, st State, op string) {
	prev, known := s.states[name]
	if known && prev == st {
		return
	}
	switch {
	case st.Fetching() && !prev.Fetching():
		inFlight.Inc()
	case !st.Fetching() && prev.Fetching():
		inFlight.Dec()
	}
	s.states[name] = st
	transitionsTotal.WithLabelValues(string(st), op).Inc()
	s.logger.Debug("fetch state changed", "variable", name, "from", prev, "to", st, "op", op)
}

func (s *Store) startState(name string) State {
	if _, ok := s.lastUpdated[name]; ok {
		return StateRevalidating
	}
	return StateLoading
}

func (s *Store) hasQueryParents(name string, fc Context) bool {
	for _, p := range fc.Dependencies.ParentsOf(name) {
		if fc.isQuery(p) {
			return true
		}
	}
	return false
}

// queryParentsSettled treats unknown parents as settled.
func (s *Store) queryParentsSettled(name string, fc Context) bool {
	for _, p := range fc.Dependencies.ParentsOf(name) {
		if !fc.isQuery(p) {
			continue
		}
		if st, ok := s.states[p]; ok && st.InFlight() {
			return false
		}
	}
	return true
}

func (s *Store) unlockDynamic(fc Context, op string) {
	for name, kind := range fc.Kinds {
		if kind == core.KindQuery && s.states[name].InFlight() {
			return
		}
	}
	for _, name := range fc.DynamicOrder {
		if s.states[name] == StateWaiting {
			s.set(name, s.startState(name), op)
		}
	}
}

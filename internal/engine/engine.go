// Package engine refreshes the values of a dashboard's variables.
//
// The engine owns a dashboard, its dependency context and the fetch state
// of every variable. RefreshAll loads everything in dependency waves;
// Select changes one selection and refreshes the variables that depend on
// it, one at a time, through the invocation gate.
package engine

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/internal/fetchstate"
	"github.com/leapstack-labs/dashvars/pkg/core"
)

// DefaultConcurrency is the number of independent fetches run at once.
const DefaultConcurrency = 4

// ErrNoSource is returned when a variable needs a query but no source is set.
var ErrNoSource = errors.New("no value source configured")

// Config holds engine configuration.
type Config struct {
	// Source answers query and dynamic variables. Optional when the
	// dashboard only has custom and textbox variables.
	Source core.Source
	// Store records runs and fetches. Optional.
	Store core.Store
	// Concurrency limits parallel fetches during RefreshAll.
	Concurrency int
	// Timeout bounds a single fetch; zero means no limit.
	Timeout time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine refreshes the variables of one dashboard. It is safe for
// concurrent use.
type Engine struct {
	mu        sync.RWMutex
	dashboard *core.Dashboard
	options   map[string][]string
	errs      map[string]error

	deps  *dag.DependencyContext
	fetch *fetchstate.Store

	src         core.Source
	store       core.Store
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger

	// afterFetch runs once a fetch returns, before its result is applied.
	afterFetch func(name string)
}

// New creates an engine for a copy of d.
func New(d *core.Dashboard, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("dashboard", d.ID)

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	dashboard := d.Clone()
	deps := dag.NewDependencyContext(dashboard.Variables)
	fetch := fetchstate.New(fetchstate.WithLogger(logger))
	fetch.Initialize(dashboard.Names())

	logger.Debug("engine created",
		"variables", len(dashboard.Variables),
		"edges", deps.Graph.EdgeCount(),
		"cycle", deps.HasCycle())

	return &Engine{
		dashboard:   dashboard,
		options:     make(map[string][]string),
		errs:        make(map[string]error),
		deps:        deps,
		fetch:       fetch,
		src:         cfg.Source,
		store:       cfg.Store,
		concurrency: concurrency,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

// Check returns a *dag.CycleError when the variables cannot be ordered.
func (e *Engine) Check() error {
	return e.deps.Err()
}

// Dependencies returns the dependency context of the dashboard.
func (e *Engine) Dependencies() *dag.DependencyContext {
	return e.deps
}

// Dashboard returns a copy of the dashboard with current selections.
func (e *Engine) Dashboard() *core.Dashboard {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dashboard.Clone()
}

// Options returns the last fetched options of a variable.
func (e *Engine) Options(name string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.options[name]...)
}

// VariableState is the public view of one variable.
type VariableState struct {
	Name        string           `json:"name"`
	Kind        core.Kind        `json:"type"`
	State       fetchstate.State `json:"state"`
	Selected    any              `json:"selected,omitempty"`
	AllSelected bool             `json:"all_selected,omitempty"`
	Options     []string         `json:"options"`
	Error       string           `json:"error,omitempty"`
	LastUpdated *time.Time       `json:"last_updated,omitempty"`
}

// Variables returns the state of every variable in dashboard order.
func (e *Engine) Variables() []VariableState {
	snap := e.fetch.Snapshot()

	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]VariableState, 0, len(e.dashboard.Variables))
	for _, v := range e.dashboard.Variables {
		vs := VariableState{
			Name:        v.Name,
			Kind:        v.Kind,
			State:       snap.States[v.Name],
			Selected:    v.SelectedValue,
			AllSelected: v.AllSelected,
			Options:     append([]string(nil), e.options[v.Name]...),
		}
		if err := e.errs[v.Name]; err != nil {
			vs.Error = err.Error()
		}
		if ts, ok := snap.LastUpdated[v.Name]; ok {
			vs.LastUpdated = &ts
		}
		out = append(out, vs)
	}
	return out
}

// fetchContext builds the scheduling context from the current selections.
func (e *Engine) fetchContext() fetchstate.Context {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fetchstate.NewContext(e.dashboard, e.deps)
}

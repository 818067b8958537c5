package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/dashvars/internal/dag"
	"github.com/leapstack-labs/dashvars/internal/fetchstate"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"golang.org/x/sync/errgroup"
)

// TriggerAll is the run trigger of RefreshAll.
const TriggerAll = "all"

// Fetch is the outcome of one variable fetch.
type Fetch struct {
	Variable string
	CycleID  int
	Status   core.FetchStatus
	Values   int
	Err      error
	Duration time.Duration
}

// Report describes one refresh.
type Report struct {
	// RunID is empty when runs are not recorded.
	RunID    string
	Trigger  string
	Fetches  []Fetch
	Duration time.Duration

	started time.Time
}

// Failed returns the fetches that returned an error.
func (r *Report) Failed() []Fetch {
	var out []Fetch
	for _, f := range r.Fetches {
		if f.Status == core.FetchStatusFailed {
			out = append(out, f)
		}
	}
	return out
}

// Err joins the errors of every failed fetch.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", f.Variable, f.Err))
	}
	return errors.Join(errs...)
}

// Fetched returns the names of the fetched variables in completion order.
func (r *Report) Fetched() []string {
	names := make([]string, 0, len(r.Fetches))
	for _, f := range r.Fetches {
		names = append(names, f.Variable)
	}
	return names
}

type fetchResult struct {
	name    string
	cycle   int
	values  []string
	err     error
	started time.Time
	elapsed time.Duration
}

// RefreshAll fetches the options of every variable. Custom and textbox
// variables resolve immediately; query and dynamic variables load in waves,
// each wave fetching every variable whose parents have settled. Fetch
// failures are reported through the Report; the returned error is non-nil
// only for cycles and cancellation.
func (e *Engine) RefreshAll(ctx context.Context) (*Report, error) {
	if err := e.Check(); err != nil {
		return nil, err
	}

	report := e.beginRun(TriggerAll)
	e.logger.Info("refreshing variables", "run_id", report.RunID)

	e.resolveStatic(ctx, report)
	e.fetch.EnqueueAll(e.fetchContext())

	for {
		if err := ctx.Err(); err != nil {
			e.finishRun(report, err)
			return report, err
		}
		names := e.fetch.Fetching(e.deps.Order)
		if len(names) == 0 {
			break
		}
		e.logger.Debug("fetch wave", "variables", names)
		for _, r := range e.runWave(ctx, names) {
			e.apply(report, r)
		}
	}

	e.finishRun(report, nil)
	return report, nil
}

// Select sets the selection of a variable and refreshes the query variables
// that depend on it. Dependents are fetched one at a time from the head of a
// pending queue; when a fetch fails, its descendants are dropped from the
// queue. The value core.AllSelectedValue selects every option.
func (e *Engine) Select(ctx context.Context, name string, value any) (*Report, error) {
	if err := e.Check(); err != nil {
		return nil, err
	}
	if err := e.setSelection(name, value); err != nil {
		return nil, err
	}

	report := e.beginRun(name)
	queue := dag.NewQueue(e.pending(name)...)
	e.logger.Info("selection changed", "variable", name, "run_id", report.RunID, "pending", queue.Items())

	e.fetch.EnqueueDescendants(name, e.fetchContext())

	for queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			e.finishRun(report, err)
			return report, err
		}
		head, _ := queue.Head()
		if !e.deps.ShouldFetch(queue.Items(), head) {
			queue.Remove(head)
			continue
		}

		r := e.fetchOne(ctx, head, e.fetch.CycleID(head))
		queue.Remove(head)
		if e.apply(report, r) == core.FetchStatusFailed {
			for _, d := range e.deps.DescendantsOf(head) {
				if queue.Remove(d) {
					e.logger.Debug("dropped dependent of failed variable", "variable", d, "failed", head)
				}
			}
		}
	}

	e.finishRun(report, nil)
	return report, nil
}

// pending lists the query variables to refresh after name changed, in
// topological order. name itself is not included.
func (e *Engine) pending(name string) []string {
	kinds := e.fetchContext().Kinds
	var out []string
	e.deps.Propagate(name, func(id string) {
		if id != name && kinds[id] == core.KindQuery {
			out = append(out, id)
		}
	})
	return out
}

func (e *Engine) setSelection(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.dashboard.Variable(name)
	if !ok {
		return fmt.Errorf("unknown variable %q", name)
	}
	value = normalizeSelection(value)
	v.SelectedValue = value
	v.AllSelected = value == core.AllSelectedValue
	return nil
}

// resolveStatic fills the options of custom and textbox variables.
func (e *Engine) resolveStatic(ctx context.Context, report *Report) {
	e.mu.RLock()
	var names []string
	for _, v := range e.dashboard.Variables {
		if v.Kind == core.KindCustom || v.Kind == core.KindTextbox {
			names = append(names, v.Name)
		}
	}
	e.mu.RUnlock()

	for _, name := range names {
		r := e.fetchOne(ctx, name, e.fetch.CycleID(name))
		e.apply(report, r)
	}
}

func (e *Engine) runWave(ctx context.Context, names []string) []fetchResult {
	results := make([]fetchResult, len(names))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, name := range names {
		cycle := e.fetch.CycleID(name)
		g.Go(func() error {
			results[i] = e.fetchOne(ctx, name, cycle)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) fetchOne(ctx context.Context, name string, cycle int) fetchResult {
	start := time.Now()
	values, err := e.fetchValues(ctx, name)
	r := fetchResult{
		name:    name,
		cycle:   cycle,
		values:  values,
		err:     err,
		started: start,
		elapsed: time.Since(start),
	}
	if e.afterFetch != nil {
		e.afterFetch(name)
	}
	return r
}

// apply stores a fetch result unless a newer cycle superseded it.
func (e *Engine) apply(report *Report, r fetchResult) core.FetchStatus {
	f := Fetch{Variable: r.name, CycleID: r.cycle, Duration: r.elapsed}

	switch {
	case !e.fetch.IsCurrent(r.name, r.cycle):
		f.Status = core.FetchStatusStale
		fetchstate.RecordStale()
		e.logger.Debug("discarding stale result", "variable", r.name, "cycle", r.cycle)
	case r.err != nil:
		f.Status = core.FetchStatusFailed
		f.Err = r.err
		e.mu.Lock()
		e.errs[r.name] = r.err
		e.mu.Unlock()
		e.fetch.Fail(r.name, e.fetchContext())
		e.logger.Warn("variable fetch failed", "variable", r.name, "error", r.err)
	default:
		f.Status = core.FetchStatusSuccess
		f.Values = len(r.values)
		e.setOptions(r.name, r.values)
		e.fetch.Complete(r.name, e.fetchContext())
	}

	fetchDuration.WithLabelValues(e.kindOf(r.name).String(), string(f.Status)).Observe(r.elapsed.Seconds())
	report.Fetches = append(report.Fetches, f)
	e.recordFetch(report, f, r.started)
	return f.Status
}

func (e *Engine) setOptions(name string, values []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.options[name] = values
	delete(e.errs, name)
	if v, ok := e.dashboard.Variable(name); ok {
		v.SelectedValue = Reconcile(v, values)
	}
}

func (e *Engine) kindOf(name string) core.Kind {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if v, ok := e.dashboard.Variable(name); ok {
		return v.Kind
	}
	return core.KindUnknown
}

func triggerLabel(trigger string) string {
	if trigger == TriggerAll {
		return TriggerAll
	}
	return "select"
}

func (e *Engine) beginRun(trigger string) *Report {
	report := &Report{Trigger: trigger, started: time.Now()}
	if e.store == nil {
		return report
	}
	run, err := e.store.CreateRun(e.dashboard.ID, trigger)
	if err != nil {
		e.logger.Warn("not recording run", "error", err)
		return report
	}
	report.RunID = run.ID
	return report
}

func (e *Engine) recordFetch(report *Report, f Fetch, started time.Time) {
	if report.RunID == "" {
		return
	}
	vf := &core.VariableFetch{
		RunID:       report.RunID,
		Variable:    f.Variable,
		CycleID:     f.CycleID,
		Status:      f.Status,
		ValueCount:  f.Values,
		StartedAt:   started,
		ExecutionMS: f.Duration.Milliseconds(),
	}
	if f.Err != nil {
		vf.Error = f.Err.Error()
	}
	if err := e.store.RecordFetch(vf); err != nil {
		e.logger.Warn("failed to record fetch", "variable", f.Variable, "error", err)
	}
}

func (e *Engine) finishRun(report *Report, runErr error) {
	report.Duration = time.Since(report.started)
	if runErr == nil {
		runErr = report.Err()
	}

	status := core.RunStatusCompleted
	errMsg := ""
	if runErr != nil {
		status = core.RunStatusFailed
		errMsg = runErr.Error()
	}
	runsTotal.WithLabelValues(triggerLabel(report.Trigger), string(status)).Inc()

	e.logger.Info("refresh finished",
		"run_id", report.RunID,
		"trigger", report.Trigger,
		"fetched", len(report.Fetches),
		"failed", len(report.Failed()),
		"duration_ms", report.Duration.Milliseconds())

	if report.RunID == "" {
		return
	}
	if err := e.store.CompleteRun(report.RunID, status, errMsg); err != nil {
		e.logger.Warn("failed to complete run", "run_id", report.RunID, "error", err)
	}
}

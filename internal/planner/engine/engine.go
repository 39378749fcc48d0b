// Package engine contains the farming planner business logic.
//
// The package level functions (Decide, BuildCandidates, Plan, MatchScore
// and the task functions) are pure. Engine owns the mutable session state
// and persists it after every change.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rsned/endfield-planner-server/internal/planner/catalog"
	"github.com/rsned/endfield-planner-server/internal/planner/metrics"
	"github.com/rsned/endfield-planner-server/internal/planner/state"
	"github.com/rsned/endfield-planner-server/pkg/planner"
)

var (
	// ErrUnknownItem is returned for item names not in the catalog.
	ErrUnknownItem = errors.New("unknown item")
	// ErrUnknownLocation is returned for locations without a plan.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrUnknownTask is returned for task or subtask ids not in the task list.
	ErrUnknownTask = errors.New("unknown task")
	// ErrInvalidStatusAction is returned for unrecognised status actions.
	ErrInvalidStatusAction = errors.New("invalid status action")
	// ErrInvalidTab is returned for task tabs other than daily and weekly.
	ErrInvalidTab = errors.New("invalid task tab")
	// ErrInvalidMode is returned for checklist view modes other than simple and detail.
	ErrInvalidMode = errors.New("invalid view mode")
)

const maxSuggestions = 3

// UnknownItemError carries catalog names close to the unknown one.
type UnknownItemError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownItemError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown item %q", e.Name)
	}
	return fmt.Sprintf("unknown item %q (did you mean %q?)", e.Name, e.Suggestions)
}

func (e *UnknownItemError) Unwrap() error { return ErrUnknownItem }

// Options configures an Engine.
type Options struct {
	Weights Weights
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Engine is the state-owning controller of a planner session.
type Engine struct {
	catalog *catalog.Catalog
	store   *state.Store
	weights Weights
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	tasks   []planner.Task

	mu        sync.Mutex
	ownership planner.Ownership
	priority  string
	todo      planner.TodoState
}

// New creates an Engine over cat and restores the persisted records
// from store.
func New(ctx context.Context, cat *catalog.Catalog, store *state.Store, opts Options) (*Engine, error) {
	e := &Engine{
		catalog: cat,
		store:   store,
		weights: opts.Weights,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
		tasks:   PrepareTasks(cat.Tasks()),
	}
	if e.weights == (Weights{}) {
		e.weights = DefaultWeights()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}

	ownership, err := state.Load(ctx, store, state.OwnershipKey, planner.Ownership{})
	if err != nil {
		return nil, fmt.Errorf("restoring ownership: %w", err)
	}
	e.ownership = planner.Ownership{}
	for name, st := range ownership {
		if st != planner.StatusTarget && st != planner.StatusOwned {
			e.logger.Warn("dropping invalid stored status", "item", name, "status", int(st))
			continue
		}
		e.ownership[name] = st
	}

	todo, err := state.Load(ctx, store, state.TodoKey, NewTodoState(e.now()))
	if err != nil {
		return nil, fmt.Errorf("restoring task record: %w", err)
	}
	todo = normalizeTodoState(todo, e.now())
	if seeded, applied := ApplyTaskDefaults(todo, cat.TaskDefaults()); applied {
		if err := e.save(ctx, state.TodoKey, seeded); err != nil {
			return nil, err
		}
		todo = seeded
	}
	e.todo = todo

	e.logger.Info("engine ready",
		"targets", len(e.ownership.Targets()),
		"statuses", len(e.ownership),
		"tasks", len(e.tasks))

	return e, nil
}

func (e *Engine) save(ctx context.Context, key string, v any) error {
	err := e.store.Save(ctx, key, v)
	if e.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.StateWritesTotal.WithLabelValues(key, status).Inc()
	}
	return err
}

func (e *Engine) unknownItem(name string) error {
	return &UnknownItemError{Name: name, Suggestions: e.catalog.Suggest(name, maxSuggestions)}
}

// ============================================
// DECISION & PLANNING
// ============================================

// Decide runs the Decision Engine against the current ownership.
func (e *Engine) Decide(req planner.DecisionRequest) planner.Decision {
	e.mu.Lock()
	ownership := e.ownership.Clone()
	e.mu.Unlock()

	d := Decide(e.catalog.Items(), ownership, req)
	if e.metrics != nil {
		e.metrics.DecisionsTotal.WithLabelValues(string(d.Verdict)).Inc()
	}
	return d
}

// FarmingPlan computes the ranked location plans for the current targets.
func (e *Engine) FarmingPlan() planner.FarmingPlanResponse {
	start := time.Now()

	e.mu.Lock()
	ownership := e.ownership.Clone()
	priority := e.priority
	e.mu.Unlock()

	candidates := BuildCandidates(e.catalog.Items(), ownership, e.weights)
	resp := planner.FarmingPlanResponse{
		Plans:    Plan(candidates, priority),
		Priority: priority,
	}
	for _, c := range candidates {
		if !c.IsTarget {
			continue
		}
		resp.TargetCount++
		if len(SplitLocations(c.Item.Location)) == 0 {
			resp.Unlocated = append(resp.Unlocated, c.Item.Name)
		}
	}

	elapsed := time.Since(start)
	resp.ProcessingMs = elapsed.Milliseconds()
	if e.metrics != nil {
		e.metrics.PlanRunsTotal.Inc()
		e.metrics.PlanDuration.Observe(elapsed.Seconds())
		e.metrics.PlanLocations.Observe(float64(len(resp.Plans)))
	}
	return resp
}

// MatchScore scores an item against the current plan for a location.
func (e *Engine) MatchScore(itemName, locationName string) (planner.MatchScoreResponse, error) {
	item, ok := e.catalog.Item(itemName)
	if !ok {
		return planner.MatchScoreResponse{}, e.unknownItem(itemName)
	}
	for _, plan := range e.FarmingPlan().Plans {
		if plan.LocationName == locationName {
			return planner.MatchScoreResponse{
				ItemName:     itemName,
				LocationName: locationName,
				Score:        MatchScore(item, plan),
			}, nil
		}
	}
	return planner.MatchScoreResponse{}, fmt.Errorf("%w: %s", ErrUnknownLocation, locationName)
}

// ============================================
// OWNERSHIP
// ============================================

// nextStatus applies action to the current status.
func nextStatus(current planner.Status, action planner.StatusAction) planner.Status {
	switch action {
	case planner.ActionToggle:
		if current == planner.StatusNone {
			return planner.StatusTarget
		}
		return planner.StatusNone
	case planner.ActionOwn:
		return planner.StatusOwned
	default:
		return planner.StatusNone
	}
}

// SetItemStatus applies action to the named item, persists the ownership
// record and returns the new status. Clearing or owning the priority item
// resets the priority.
func (e *Engine) SetItemStatus(ctx context.Context, name string, action planner.StatusAction) (planner.Status, error) {
	if !action.IsValid() {
		return planner.StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatusAction, action)
	}
	if !e.catalog.Has(name) {
		return planner.StatusNone, e.unknownItem(name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.ownership.Clone()
	status := nextStatus(next.Get(name), action)
	next.Set(name, status)

	if err := e.save(ctx, state.OwnershipKey, next); err != nil {
		return e.ownership.Get(name), err
	}
	e.ownership = next
	if e.priority == name && status != planner.StatusTarget {
		e.priority = ""
	}

	if e.metrics != nil {
		e.metrics.StatusChangesTotal.WithLabelValues(string(action)).Inc()
	}
	e.logger.Debug("item status changed", "item", name, "action", action, "status", int(status))
	return status, nil
}

// ToggleTarget flips an item between none and target. Owned items go back to none.
func (e *Engine) ToggleTarget(ctx context.Context, name string) (planner.Status, error) {
	return e.SetItemStatus(ctx, name, planner.ActionToggle)
}

// MarkOwned marks an item as owned.
func (e *Engine) MarkOwned(ctx context.Context, name string) (planner.Status, error) {
	return e.SetItemStatus(ctx, name, planner.ActionOwn)
}

// ClearStatus removes any status from an item.
func (e *Engine) ClearStatus(ctx context.Context, name string) (planner.Status, error) {
	return e.SetItemStatus(ctx, name, planner.ActionClear)
}

// ResetStatus clears every status and the priority.
func (e *Engine) ResetStatus(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.save(ctx, state.OwnershipKey, planner.Ownership{}); err != nil {
		return err
	}
	e.ownership = planner.Ownership{}
	e.priority = ""
	e.logger.Info("all item statuses reset")
	return nil
}

// SetPriority toggles the priority item: selecting the current priority
// clears it, an empty name clears it too. It returns the new priority.
func (e *Engine) SetPriority(name string) (string, error) {
	if name != "" && !e.catalog.Has(name) {
		return "", e.unknownItem(name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" || e.priority == name {
		e.priority = ""
	} else {
		e.priority = name
	}
	return e.priority, nil
}

// Priority returns the current priority item, or "".
func (e *Engine) Priority() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.priority
}

// Ownership returns a copy of the ownership record.
func (e *Engine) Ownership() planner.Ownership {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ownership.Clone()
}

// SearchItems returns the catalog items whose name contains query, with
// their status.
func (e *Engine) SearchItems(query string) []planner.ItemView {
	items := e.catalog.Search(query)

	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]planner.ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, planner.ItemView{Item: it, Status: e.ownership.Get(it.Name)})
	}
	return views
}

// Tags returns every catalog tag grouped by category.
func (e *Engine) Tags() map[planner.Category][]string {
	return planner.GroupTags(e.catalog.Tags())
}

// CatalogStatus summarises the loaded catalog and the session state.
func (e *Engine) CatalogStatus() planner.CatalogStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := planner.CatalogStatus{
		Items:     len(e.catalog.Items()),
		Locations: len(e.catalog.Locations()),
		Tasks:     len(e.tasks),
		Tags:      len(e.catalog.Tags()),
	}
	for _, st := range e.ownership {
		switch st {
		case planner.StatusTarget:
			status.Targets++
		case planner.StatusOwned:
			status.Owned++
		}
	}
	return status
}

// ============================================
// TASK CHECKLIST
// ============================================

// ListTasks returns the checklist for tab.
func (e *Engine) ListTasks(tab planner.TaskType) (planner.TaskListResponse, error) {
	if !tab.IsValid() {
		return planner.TaskListResponse{}, fmt.Errorf("%w: %q", ErrInvalidTab, tab)
	}

	e.mu.Lock()
	todo := e.todo
	e.mu.Unlock()

	return planner.TaskListResponse{
		Tab:           tab,
		Tasks:         ProcessTasks(e.tasks, todo, tab),
		Progress:      TaskProgress(e.tasks, todo, tab),
		HideCompleted: todo.HideCompleted,
		Mode:          todo.Mode,
		Hidden:        HiddenTasks(e.tasks, todo),
	}, nil
}

// TodoState returns a copy of the task record.
func (e *Engine) TodoState() planner.TodoState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneTodoState(e.todo)
}

// updateTodo applies fn to the task record and persists the result.
func (e *Engine) updateTodo(ctx context.Context, kind string, fn func(planner.TodoState) (planner.TodoState, error)) (planner.TodoState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.todo)
	if err != nil {
		return cloneTodoState(e.todo), err
	}
	if err := e.save(ctx, state.TodoKey, next); err != nil {
		return cloneTodoState(e.todo), err
	}
	e.todo = next

	if e.metrics != nil {
		e.metrics.TaskTogglesTotal.WithLabelValues(kind).Inc()
	}
	return cloneTodoState(next), nil
}

// ToggleTask flips a task's completion.
func (e *Engine) ToggleTask(ctx context.Context, taskID string) (planner.TodoState, error) {
	return e.updateTodo(ctx, "main", func(s planner.TodoState) (planner.TodoState, error) {
		return ToggleMainTask(taskID, e.tasks, s)
	})
}

// ToggleSubtask flips one subtask of a task.
func (e *Engine) ToggleSubtask(ctx context.Context, taskID, subID string) (planner.TodoState, error) {
	return e.updateTodo(ctx, "sub", func(s planner.TodoState) (planner.TodoState, error) {
		return ToggleSubTask(taskID, subID, e.tasks, s)
	})
}

// HideTask hides a task from its tab.
func (e *Engine) HideTask(ctx context.Context, taskID string) (planner.TodoState, error) {
	return e.updateTodo(ctx, "hide", func(s planner.TodoState) (planner.TodoState, error) {
		return SetTaskHidden(taskID, true, e.tasks, s)
	})
}

// RestoreTask brings a hidden task back.
func (e *Engine) RestoreTask(ctx context.Context, taskID string) (planner.TodoState, error) {
	return e.updateTodo(ctx, "restore", func(s planner.TodoState) (planner.TodoState, error) {
		return SetTaskHidden(taskID, false, e.tasks, s)
	})
}

// UpdateTaskSettings changes hide-completed and the view mode.
func (e *Engine) UpdateTaskSettings(ctx context.Context, settings planner.TaskSettings) (planner.TodoState, error) {
	return e.updateTodo(ctx, "settings", func(s planner.TodoState) (planner.TodoState, error) {
		next := cloneTodoState(s)
		if settings.HideCompleted != nil {
			next.HideCompleted = *settings.HideCompleted
		}
		switch settings.Mode {
		case "":
		case planner.ModeSimple, planner.ModeDetail:
			next.Mode = settings.Mode
		default:
			return s, fmt.Errorf("%w: %q", ErrInvalidMode, settings.Mode)
		}
		return next, nil
	})
}

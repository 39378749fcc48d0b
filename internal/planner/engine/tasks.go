package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

// unorderedIndex sorts tasks missing from the custom order after ordered ones.
const unorderedIndex = 9999

// NewTodoState returns an empty task record stamped with now.
func NewTodoState(now time.Time) planner.TodoState {
	return planner.TodoState{
		LastLogin:   now.UnixMilli(),
		Completed:   map[string]bool{},
		SubStatus:   map[string]map[string]bool{},
		Order:       planner.TaskOrder{Daily: []string{}, Weekly: []string{}},
		HiddenTasks: map[string]bool{},
		Mode:        planner.ModeSimple,
	}
}

// normalizeTodoState fills fields a partial persisted record may lack.
func normalizeTodoState(s planner.TodoState, now time.Time) planner.TodoState {
	if s.LastLogin == 0 {
		s.LastLogin = now.UnixMilli()
	}
	if s.Completed == nil {
		s.Completed = map[string]bool{}
	}
	if s.SubStatus == nil {
		s.SubStatus = map[string]map[string]bool{}
	}
	if s.Order.Daily == nil {
		s.Order.Daily = []string{}
	}
	if s.Order.Weekly == nil {
		s.Order.Weekly = []string{}
	}
	if s.HiddenTasks == nil {
		s.HiddenTasks = map[string]bool{}
	}
	if s.Mode != planner.ModeDetail {
		s.Mode = planner.ModeSimple
	}
	return s
}

func cloneTodoState(s planner.TodoState) planner.TodoState {
	c := s
	c.Completed = cloneBoolMap(s.Completed)
	c.HiddenTasks = cloneBoolMap(s.HiddenTasks)
	c.SubStatus = make(map[string]map[string]bool, len(s.SubStatus))
	for id, subs := range s.SubStatus {
		c.SubStatus[id] = cloneBoolMap(subs)
	}
	c.Order = planner.TaskOrder{
		Daily:  append([]string{}, s.Order.Daily...),
		Weekly: append([]string{}, s.Order.Weekly...),
	}
	return c
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	c := make(map[string]bool, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// PrepareTasks derives the subtasks of every task. Steps win; otherwise a
// description containing "/" is split into steps; otherwise a non-empty
// description becomes the single step.
func PrepareTasks(records []planner.TaskRecord) []planner.Task {
	tasks := make([]planner.Task, 0, len(records))
	for _, rec := range records {
		var titles []string
		switch {
		case len(rec.Steps) > 0:
			titles = rec.Steps
		case strings.Contains(rec.Desc, "/"):
			for _, part := range strings.Split(rec.Desc, "/") {
				titles = append(titles, strings.TrimSpace(part))
			}
		case rec.Desc != "":
			titles = []string{rec.Desc}
		}

		subs := make([]planner.Subtask, 0, len(titles))
		for i, title := range titles {
			subs = append(subs, planner.Subtask{ID: fmt.Sprintf("%s-sub-%d", rec.ID, i), Title: title})
		}
		tasks = append(tasks, planner.Task{TaskRecord: rec, Subtasks: subs})
	}
	return tasks
}

// ApplyTaskDefaults seeds order and hidden tasks from defaults when no
// daily order has been saved yet. Hidden flags already in state win over
// the defaults. The bool reports whether anything was applied.
func ApplyTaskDefaults(state planner.TodoState, defaults *planner.TaskDefaults) (planner.TodoState, bool) {
	if defaults == nil || len(state.Order.Daily) > 0 {
		return state, false
	}
	next := cloneTodoState(state)
	next.Order = planner.TaskOrder{
		Daily:  append([]string{}, defaults.Order.Daily...),
		Weekly: append([]string{}, defaults.Order.Weekly...),
	}
	hidden := cloneBoolMap(defaults.HiddenTasks)
	for id, v := range state.HiddenTasks {
		hidden[id] = v
	}
	next.HiddenTasks = hidden
	return next, true
}

func visibleTasks(tasks []planner.Task, state planner.TodoState, tab planner.TaskType) []planner.Task {
	var out []planner.Task
	for _, t := range tasks {
		if t.Type == tab && !state.HiddenTasks[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// ProcessTasks returns the tasks of tab that are not hidden, without the
// completed ones when HideCompleted is set, in the saved custom order.
// Tasks missing from the order follow, by default order.
func ProcessTasks(tasks []planner.Task, state planner.TodoState, tab planner.TaskType) []planner.Task {
	visible := visibleTasks(tasks, state, tab)

	out := make([]planner.Task, 0, len(visible))
	for _, t := range visible {
		if state.HideCompleted && state.Completed[t.ID] {
			continue
		}
		out = append(out, t)
	}

	index := make(map[string]int)
	for i, id := range state.Order.For(tab) {
		if _, dup := index[id]; !dup {
			index[id] = i
		}
	}
	orderOf := func(id string) int {
		if i, ok := index[id]; ok {
			return i
		}
		return unorderedIndex
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := orderOf(out[i].ID), orderOf(out[j].ID)
		if a != b {
			return a < b
		}
		return out[i].DefaultOrder < out[j].DefaultOrder
	})
	return out
}

// HiddenTasks returns the hidden tasks in catalog order.
func HiddenTasks(tasks []planner.Task, state planner.TodoState) []planner.Task {
	var out []planner.Task
	for _, t := range tasks {
		if state.HiddenTasks[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// TaskProgress is the rounded percentage of checked subtasks over the
// non-hidden tasks of tab. Completed tasks count even when HideCompleted
// is set.
func TaskProgress(tasks []planner.Task, state planner.TodoState, tab planner.TaskType) int {
	total, done := 0, 0
	for _, t := range visibleTasks(tasks, state, tab) {
		total += len(t.Subtasks)
		subs := state.SubStatus[t.ID]
		for _, s := range t.Subtasks {
			if subs[s.ID] {
				done++
			}
		}
	}
	return percent(done, total)
}

func findTask(tasks []planner.Task, id string) (planner.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return planner.Task{}, false
}

// ToggleMainTask flips a task's completion. Completing checks every
// subtask; un-completing clears them. The input state is not modified.
func ToggleMainTask(taskID string, tasks []planner.Task, state planner.TodoState) (planner.TodoState, error) {
	task, ok := findTask(tasks, taskID)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	next := cloneTodoState(state)
	if next.Completed[taskID] {
		delete(next.Completed, taskID)
		delete(next.SubStatus, taskID)
		return next, nil
	}

	next.Completed[taskID] = true
	subs := next.SubStatus[taskID]
	if subs == nil {
		subs = map[string]bool{}
		next.SubStatus[taskID] = subs
	}
	for _, s := range task.Subtasks {
		subs[s.ID] = true
	}
	return next, nil
}

// ToggleSubTask flips one subtask. The task is complete exactly when all
// its subtasks are checked. The input state is not modified.
func ToggleSubTask(taskID, subID string, tasks []planner.Task, state planner.TodoState) (planner.TodoState, error) {
	task, ok := findTask(tasks, taskID)
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	known := false
	for _, s := range task.Subtasks {
		if s.ID == subID {
			known = true
			break
		}
	}
	if !known {
		return state, fmt.Errorf("%w: %s has no subtask %s", ErrUnknownTask, taskID, subID)
	}

	next := cloneTodoState(state)
	subs := next.SubStatus[taskID]
	if subs == nil {
		subs = map[string]bool{}
		next.SubStatus[taskID] = subs
	}
	if subs[subID] {
		delete(subs, subID)
	} else {
		subs[subID] = true
	}

	allDone := true
	for _, s := range task.Subtasks {
		if !subs[s.ID] {
			allDone = false
			break
		}
	}
	if allDone {
		next.Completed[taskID] = true
	} else {
		delete(next.Completed, taskID)
	}
	return next, nil
}

// SetTaskHidden hides or restores a task. The input state is not modified.
func SetTaskHidden(taskID string, hidden bool, tasks []planner.Task, state planner.TodoState) (planner.TodoState, error) {
	if _, ok := findTask(tasks, taskID); !ok {
		return state, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	next := cloneTodoState(state)
	if hidden {
		next.HiddenTasks[taskID] = true
	} else {
		delete(next.HiddenTasks, taskID)
	}
	return next, nil
}

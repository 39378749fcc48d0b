package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

func sampleTaskRecords() []planner.TaskRecord {
	return []planner.TaskRecord{
		{ID: "d1", Type: planner.TaskDaily, Title: "Patrol", Steps: []string{"North", "South"}, DefaultOrder: 3},
		{ID: "d2", Type: planner.TaskDaily, Title: "Shop", Desc: "Buy / Sell / Craft", DefaultOrder: 1},
		{ID: "d3", Type: planner.TaskDaily, Title: "Login", Desc: "Open the game", DefaultOrder: 2},
		{ID: "d4", Type: planner.TaskDaily, Title: "Nothing"},
		{ID: "w1", Type: planner.TaskWeekly, Title: "Boss", Steps: []string{"Kill"}},
	}
}

func freshTodo() planner.TodoState {
	return NewTodoState(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestPrepareTasks(t *testing.T) {
	tasks := PrepareTasks(sampleTaskRecords())
	require.Len(t, tasks, 5)

	assert.Equal(t, []planner.Subtask{{ID: "d1-sub-0", Title: "North"}, {ID: "d1-sub-1", Title: "South"}}, tasks[0].Subtasks)
	assert.Equal(t, []planner.Subtask{
		{ID: "d2-sub-0", Title: "Buy"},
		{ID: "d2-sub-1", Title: "Sell"},
		{ID: "d2-sub-2", Title: "Craft"},
	}, tasks[1].Subtasks)
	assert.Equal(t, []planner.Subtask{{ID: "d3-sub-0", Title: "Open the game"}}, tasks[2].Subtasks)
	assert.Empty(t, tasks[3].Subtasks)
}

func TestProcessTasks_Order(t *testing.T) {
	tasks := PrepareTasks(sampleTaskRecords())
	state := freshTodo()

	ids := func(ts []planner.Task) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}

	// No custom order: default order, missing default counts as 0.
	assert.Equal(t, []string{"d4", "d2", "d3", "d1"}, ids(ProcessTasks(tasks, state, planner.TaskDaily)))

	// Custom order first, the rest by default order.
	state.Order.Daily = []string{"d1", "d3"}
	assert.Equal(t, []string{"d1", "d3", "d4", "d2"}, ids(ProcessTasks(tasks, state, planner.TaskDaily)))

	state.HiddenTasks["d3"] = true
	assert.Equal(t, []string{"d1", "d4", "d2"}, ids(ProcessTasks(tasks, state, planner.TaskDaily)))

	state.Completed["d1"] = true
	state.HideCompleted = true
	assert.Equal(t, []string{"d4", "d2"}, ids(ProcessTasks(tasks, state, planner.TaskDaily)))

	assert.Equal(t, []string{"w1"}, ids(ProcessTasks(tasks, state, planner.TaskWeekly)))
}

func TestToggleMainTask(t *testing.T) {
	tasks := PrepareTasks(sampleTaskRecords())
	state := freshTodo()

	next, err := ToggleMainTask("d1", tasks, state)
	require.NoError(t, err)
	assert.True(t, next.Completed["d1"])
	assert.Equal(t, map[string]bool{"d1-sub-0": true, "d1-sub-1": true}, next.SubStatus["d1"])
	assert.Empty(t, state.Completed, "input state is not modified")

	back, err := ToggleMainTask("d1", tasks, next)
	require.NoError(t, err)
	assert.False(t, back.Completed["d1"])
	assert.NotContains(t, back.SubStatus, "d1")
	assert.True(t, next.Completed["d1"])

	_, err = ToggleMainTask("nope", tasks, state)
	assert.True(t, errors.Is(err, ErrUnknownTask))
}

func TestToggleSubTask(t *testing.T) {
	tasks := PrepareTasks(sampleTaskRecords())
	state := freshTodo()

	s1, err := ToggleSubTask("d1", "d1-sub-0", tasks, state)
	require.NoError(t, err)
	assert.False(t, s1.Completed["d1"])

	s2, err := ToggleSubTask("d1", "d1-sub-1", tasks, s1)
	require.NoError(t, err)
	assert.True(t, s2.Completed["d1"], "all subtasks checked completes the task")

	s3, err := ToggleSubTask("d1", "d1-sub-0", tasks, s2)
	require.NoError(t, err)
	assert.False(t, s3.Completed["d1"])
	assert.True(t, s2.Completed["d1"], "input state is not modified")

	_, err = ToggleSubTask("d1", "d1-sub-9", tasks, state)
	assert.True(t, errors.Is(err, ErrUnknownTask))
}

func TestTaskProgress(t *testing.T) {
	tasks := PrepareTasks(sampleTaskRecords())
	state := freshTodo()
	assert.Equal(t, 0, TaskProgress(tasks, state, planner.TaskDaily))

	// 6 daily subtasks: d1 has 2, d2 has 3, d3 has 1.
	state, err := ToggleMainTask("d1", tasks, state)
	require.NoError(t, err)
	assert.Equal(t, 33, TaskProgress(tasks, state, planner.TaskDaily))

	state, err = ToggleSubTask("d2", "d2-sub-0", tasks, state)
	require.NoError(t, err)
	assert.Equal(t, 50, TaskProgress(tasks, state, planner.TaskDaily))

	// Hidden tasks leave the denominator.
	state.HiddenTasks["d2"] = true
	assert.Equal(t, 67, TaskProgress(tasks, state, planner.TaskDaily))

	assert.Equal(t, 0, TaskProgress(nil, state, planner.TaskWeekly))
}

func TestSetTaskHidden(t *testing.T) {
	tasks := PrepareTasks(sampleTaskRecords())
	state := freshTodo()

	hidden, err := SetTaskHidden("w1", true, tasks, state)
	require.NoError(t, err)
	assert.True(t, hidden.HiddenTasks["w1"])
	assert.Len(t, HiddenTasks(tasks, hidden), 1)

	restored, err := SetTaskHidden("w1", false, tasks, hidden)
	require.NoError(t, err)
	assert.Empty(t, restored.HiddenTasks)
}

func TestApplyTaskDefaults(t *testing.T) {
	defaults := &planner.TaskDefaults{
		Order:       planner.TaskOrder{Daily: []string{"d2", "d1"}, Weekly: []string{"w1"}},
		HiddenTasks: map[string]bool{"d4": true, "d3": true},
	}

	state := freshTodo()
	state.HiddenTasks["d3"] = false

	seeded, applied := ApplyTaskDefaults(state, defaults)
	require.True(t, applied)
	assert.Equal(t, []string{"d2", "d1"}, seeded.Order.Daily)
	assert.True(t, seeded.HiddenTasks["d4"])
	assert.False(t, seeded.HiddenTasks["d3"], "saved flags win over defaults")

	_, applied = ApplyTaskDefaults(seeded, defaults)
	assert.False(t, applied, "defaults only seed an empty order")

	_, applied = ApplyTaskDefaults(state, nil)
	assert.False(t, applied)
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rsned/endfield-planner-server/pkg/planner"
)

var validate = validator.New()

// ToolDefinition describes an MCP tool.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema JSONSchema `json:"inputSchema"`
}

// JSONSchema is a simplified JSON Schema representation.
type JSONSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a schema property.
type Property struct {
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	Default     any       `json:"default,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// GetToolDefinitions returns all tool definitions.
func GetToolDefinitions() []ToolDefinition {
	taskID := Property{Type: "string", Description: "Task ID"}
	none := JSONSchema{Type: "object"}

	return []ToolDefinition{
		{
			Name:        "decide",
			Description: "Decide whether an item with the given option tags is worth keeping. Returns KEEP, DISCARD, EXPLORE or PROMPT with the matching items.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"active_tags": {
						Type:        "array",
						Description: "Selected option tags",
						Items:       &Property{Type: "string"},
					},
					"search_query": {Type: "string", Description: "Narrows the displayed items by name"},
					"target_rarity": {
						Type:        "integer",
						Description: "Lowest rarity still worth keeping (5 or 6)",
						Default:     6,
					},
				},
			},
		},
		{
			Name:        "farming_plan",
			Description: "Rank farming locations by how well they cover the current target items. Returns one plan per location with the recommended stat and series picks.",
			InputSchema: none,
		},
		{
			Name:        "match_score",
			Description: "Score how well an item fits a location's recommended picks (0 to 2).",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"item":     {Type: "string", Description: "Item name"},
					"location": {Type: "string", Description: "Location name"},
				},
				Required: []string{"item", "location"},
			},
		},
		{
			Name:        "set_item_status",
			Description: "Change an item's status. toggle flips between none and target, own marks it owned, clear removes the status.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"name": {Type: "string", Description: "Item name"},
					"action": {
						Type:        "string",
						Description: "Status change",
						Enum:        []string{string(planner.ActionToggle), string(planner.ActionOwn), string(planner.ActionClear)},
					},
				},
				Required: []string{"name", "action"},
			},
		},
		{
			Name:        "set_priority",
			Description: "Toggle the priority target. Passing the current priority or an empty name clears it.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"name": {Type: "string", Description: "Item name"},
				},
			},
		},
		{
			Name:        "reset_status",
			Description: "Clear every item status and the priority target.",
			InputSchema: none,
		},
		{
			Name:        "search_items",
			Description: "Search items by name (case-insensitive substring). Returns each item with its current status.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {Type: "string", Description: "Name fragment; empty returns every item"},
				},
			},
		},
		{
			Name:        "list_tags",
			Description: "List every option tag grouped by category.",
			InputSchema: none,
		},
		{
			Name:        "list_tasks",
			Description: "List the daily or weekly checklist in display order with progress.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"tab": {
						Type:    "string",
						Enum:    []string{string(planner.TaskDaily), string(planner.TaskWeekly)},
						Default: string(planner.TaskDaily),
					},
				},
			},
		},
		{
			Name:        "toggle_task",
			Description: "Toggle a task's completion. Subtasks follow the task.",
			InputSchema: JSONSchema{
				Type:       "object",
				Properties: map[string]Property{"task_id": taskID},
				Required:   []string{"task_id"},
			},
		},
		{
			Name:        "toggle_subtask",
			Description: "Toggle one subtask. The task completes when all its subtasks are done.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"task_id":    taskID,
					"subtask_id": {Type: "string", Description: "Subtask ID"},
				},
				Required: []string{"task_id", "subtask_id"},
			},
		},
		{
			Name:        "hide_task",
			Description: "Hide a task from the checklist.",
			InputSchema: JSONSchema{
				Type:       "object",
				Properties: map[string]Property{"task_id": taskID},
				Required:   []string{"task_id"},
			},
		},
		{
			Name:        "restore_task",
			Description: "Show a hidden task again.",
			InputSchema: JSONSchema{
				Type:       "object",
				Properties: map[string]Property{"task_id": taskID},
				Required:   []string{"task_id"},
			},
		},
		{
			Name:        "task_settings",
			Description: "Change checklist presentation. Omitted fields keep their value.",
			InputSchema: JSONSchema{
				Type: "object",
				Properties: map[string]Property{
					"hide_completed": {Type: "boolean"},
					"mode": {
						Type: "string",
						Enum: []string{string(planner.ModeSimple), string(planner.ModeDetail)},
					},
				},
			},
		},
		{
			Name:        "catalog_status",
			Description: "Summarise the loaded catalog, the status counts and the last import.",
			InputSchema: none,
		},
	}
}

// decodeArgs unmarshals and validates tool arguments. Missing arguments
// decode as the zero value.
func decodeArgs(args json.RawMessage, v any) error {
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, v); err != nil {
			return &paramsError{fmt.Errorf("invalid arguments: %w", err)}
		}
	}
	if err := validate.Struct(v); err != nil {
		return &paramsError{fmt.Errorf("invalid arguments: %w", err)}
	}
	return nil
}

type nameArgs struct {
	Name string `json:"name"`
}

type matchScoreArgs struct {
	Item     string `json:"item" validate:"required"`
	Location string `json:"location" validate:"required"`
}

type itemStatusArgs struct {
	Name   string               `json:"name" validate:"required"`
	Action planner.StatusAction `json:"action" validate:"required,oneof=toggle own clear"`
}

type itemStatusResult struct {
	Name     string         `json:"name"`
	Status   planner.Status `json:"status"`
	Priority string         `json:"priority,omitempty"`
}

type searchArgs struct {
	Query string `json:"query"`
}

type tabArgs struct {
	Tab planner.TaskType `json:"tab" validate:"omitempty,oneof=daily weekly"`
}

type taskArgs struct {
	TaskID string `json:"task_id" validate:"required"`
}

type subtaskArgs struct {
	TaskID    string `json:"task_id" validate:"required"`
	SubtaskID string `json:"subtask_id" validate:"required"`
}

type priorityResult struct {
	Priority string `json:"priority"`
}

func (s *Server) toolDecide(ctx context.Context, args json.RawMessage) (any, error) {
	var req planner.DecisionRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return planner.NewDecisionResponse(s.engine.Decide(req)), nil
}

func (s *Server) toolFarmingPlan(ctx context.Context, args json.RawMessage) (any, error) {
	return s.engine.FarmingPlan(), nil
}

func (s *Server) toolMatchScore(ctx context.Context, args json.RawMessage) (any, error) {
	var req matchScoreArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.MatchScore(req.Item, req.Location)
}

func (s *Server) toolSetItemStatus(ctx context.Context, args json.RawMessage) (any, error) {
	var req itemStatusArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	status, err := s.engine.SetItemStatus(ctx, req.Name, req.Action)
	if err != nil {
		return nil, err
	}
	return itemStatusResult{Name: req.Name, Status: status, Priority: s.engine.Priority()}, nil
}

func (s *Server) toolSetPriority(ctx context.Context, args json.RawMessage) (any, error) {
	var req nameArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	priority, err := s.engine.SetPriority(req.Name)
	if err != nil {
		return nil, err
	}
	return priorityResult{Priority: priority}, nil
}

func (s *Server) toolResetStatus(ctx context.Context, args json.RawMessage) (any, error) {
	if err := s.engine.ResetStatus(ctx); err != nil {
		return nil, err
	}
	return s.engine.CatalogStatus(), nil
}

func (s *Server) toolSearchItems(ctx context.Context, args json.RawMessage) (any, error) {
	var req searchArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.SearchItems(req.Query), nil
}

func (s *Server) toolListTags(ctx context.Context, args json.RawMessage) (any, error) {
	return s.engine.Tags(), nil
}

func (s *Server) toolListTasks(ctx context.Context, args json.RawMessage) (any, error) {
	var req tabArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	if req.Tab == "" {
		req.Tab = planner.TaskDaily
	}
	return s.engine.ListTasks(req.Tab)
}

func (s *Server) toolToggleTask(ctx context.Context, args json.RawMessage) (any, error) {
	var req taskArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.ToggleTask(ctx, req.TaskID)
}

func (s *Server) toolToggleSubtask(ctx context.Context, args json.RawMessage) (any, error) {
	var req subtaskArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.ToggleSubtask(ctx, req.TaskID, req.SubtaskID)
}

func (s *Server) toolHideTask(ctx context.Context, args json.RawMessage) (any, error) {
	var req taskArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.HideTask(ctx, req.TaskID)
}

func (s *Server) toolRestoreTask(ctx context.Context, args json.RawMessage) (any, error) {
	var req taskArgs
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.RestoreTask(ctx, req.TaskID)
}

func (s *Server) toolTaskSettings(ctx context.Context, args json.RawMessage) (any, error) {
	var req planner.TaskSettings
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.engine.UpdateTaskSettings(ctx, req)
}

func (s *Server) toolCatalogStatus(ctx context.Context, args json.RawMessage) (any, error) {
	status := s.engine.CatalogStatus()
	if s.status == nil {
		return status, nil
	}
	synced, err := s.status.Status(ctx)
	if err != nil {
		return nil, err
	}
	status.ItemsSyncedAt = synced.ItemsSyncedAt
	status.ItemsSynced = synced.ItemsSynced
	return status, nil
}

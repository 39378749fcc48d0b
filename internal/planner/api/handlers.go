package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rsned/endfield-planner-server/internal/planner/engine"
	"github.com/rsned/endfield-planner-server/pkg/planner"
)

var validate = validator.New()

// Error codes returned in ErrorResponse.Error.
const (
	errCodeBadRequest = "bad_request"
	errCodeValidation = "validation_error"
	errCodeNotFound   = "not_found"
	errCodeInternal   = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ItemStatusRequest is the body of POST /api/v1/items/status.
type ItemStatusRequest struct {
	Name   string               `json:"name" validate:"required"`
	Action planner.StatusAction `json:"action" validate:"required,oneof=toggle own clear"`
}

// ItemStatusResponse reports the status after a change.
type ItemStatusResponse struct {
	Name     string         `json:"name"`
	Status   planner.Status `json:"status"`
	Priority string         `json:"priority,omitempty"`
}

// PriorityRequest is the body of PUT /api/v1/plan/priority.
type PriorityRequest struct {
	Name string `json:"name"`
}

// PriorityResponse reports the priority target after a change.
type PriorityResponse struct {
	Priority string `json:"priority"`
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, code, message string, details map[string]any) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: code, Message: message, Details: details})
}

// writeEngineError maps engine errors onto HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var unknown *engine.UnknownItemError
	switch {
	case errors.As(err, &unknown):
		var details map[string]any
		if len(unknown.Suggestions) > 0 {
			details = map[string]any{"suggestions": unknown.Suggestions}
		}
		s.writeError(w, http.StatusNotFound, errCodeNotFound, err.Error(), details)
	case errors.Is(err, engine.ErrUnknownItem),
		errors.Is(err, engine.ErrUnknownTask),
		errors.Is(err, engine.ErrUnknownLocation):
		s.writeError(w, http.StatusNotFound, errCodeNotFound, err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidStatusAction),
		errors.Is(err, engine.ErrInvalidTab),
		errors.Is(err, engine.ErrInvalidMode):
		s.writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", RequestIDFrom(r.Context()),
		)
		s.writeError(w, http.StatusInternalServerError, errCodeInternal, "internal server error", nil)
	}
}

// decodeBody reads and validates a JSON body. It writes the error response
// itself and reports whether the handler should continue.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body", nil)
		return false
	}
	if err := validate.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errCodeValidation, err.Error(), nil)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req planner.DecisionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, planner.NewDecisionResponse(s.engine.Decide(req)))
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Tags())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.engine.CatalogStatus()
	if s.status != nil {
		synced, err := s.status.Status(r.Context())
		if err != nil {
			s.writeEngineError(w, r, err)
			return
		}
		status.ItemsSyncedAt = synced.ItemsSyncedAt
		status.ItemsSynced = synced.ItemsSynced
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.SearchItems(r.URL.Query().Get("q")))
}

func (s *Server) handleSetItemStatus(w http.ResponseWriter, r *http.Request) {
	var req ItemStatusRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	status, err := s.engine.SetItemStatus(r.Context(), req.Name, req.Action)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ItemStatusResponse{
		Name:     req.Name,
		Status:   status,
		Priority: s.engine.Priority(),
	})
}

func (s *Server) handleResetStatus(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetStatus(r.Context()); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFarmingPlan(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.FarmingPlan())
}

func (s *Server) handleMatchScore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	item, location := q.Get("item"), q.Get("location")
	if item == "" || location == "" {
		s.writeError(w, http.StatusBadRequest, errCodeValidation, "item and location are required", nil)
		return
	}
	resp, err := s.engine.MatchScore(item, location)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	var req PriorityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	priority, err := s.engine.SetPriority(req.Name)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, PriorityResponse{Priority: priority})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tab := planner.TaskType(r.URL.Query().Get("tab"))
	if tab == "" {
		tab = planner.TaskDaily
	}
	resp, err := s.engine.ListTasks(tab)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTaskSettings(w http.ResponseWriter, r *http.Request) {
	var req planner.TaskSettings
	if !s.decodeBody(w, r, &req) {
		return
	}
	s.writeTodo(w, r, func() (planner.TodoState, error) {
		return s.engine.UpdateTaskSettings(r.Context(), req)
	})
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	s.writeTodo(w, r, func() (planner.TodoState, error) {
		return s.engine.ToggleTask(r.Context(), chi.URLParam(r, "taskID"))
	})
}

func (s *Server) handleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	s.writeTodo(w, r, func() (planner.TodoState, error) {
		return s.engine.ToggleSubtask(r.Context(), chi.URLParam(r, "taskID"), chi.URLParam(r, "subID"))
	})
}

func (s *Server) handleHideTask(w http.ResponseWriter, r *http.Request) {
	s.writeTodo(w, r, func() (planner.TodoState, error) {
		return s.engine.HideTask(r.Context(), chi.URLParam(r, "taskID"))
	})
}

func (s *Server) handleRestoreTask(w http.ResponseWriter, r *http.Request) {
	s.writeTodo(w, r, func() (planner.TodoState, error) {
		return s.engine.RestoreTask(r.Context(), chi.URLParam(r, "taskID"))
	})
}

func (s *Server) writeTodo(w http.ResponseWriter, r *http.Request, fn func() (planner.TodoState, error)) {
	todo, err := fn()
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, todo)
}

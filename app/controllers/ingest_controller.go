package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"todo-ai/app/extraction"
	"todo-ai/app/models"
	"todo-ai/app/services"
)

// Ingester turns a free-form description into persisted tasks.
type Ingester interface {
	Ingest(ctx context.Context, req models.IngestRequest) ([]models.Task, error)
}

// IngestController handles natural-language task creation.
type IngestController struct {
	Service Ingester
}

// NewIngestController creates a new IngestController.
func NewIngestController(service Ingester) *IngestController {
	return &IngestController{Service: service}
}

// ParseTodos handles POST /api/parse-todos.
func (c *IngestController) ParseTodos(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	// ownerId stays in the body; a caller that also identifies itself must match it.
	owner, bodyOwner := strings.TrimSpace(r.Header.Get(OwnerHeader)), strings.TrimSpace(req.OwnerID)
	if owner != "" && bodyOwner != "" && owner != bodyOwner {
		writeError(w, http.StatusUnauthorized, "ownerId does not match the authenticated user")
		return
	}

	tasks, err := c.Service.Ingest(r.Context(), req)
	if err != nil {
		status, message := ingestError(err)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, models.IngestResponse{
		Success: true,
		Items:   tasks,
		Count:   len(tasks),
	})
}

// ingestError maps an ingest failure to its status code and user-facing message.
func ingestError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "text and ownerId are required"
	case errors.Is(err, extraction.ErrModelInvocation):
		return http.StatusBadRequest, "could not reach the task parser"
	case errors.Is(err, extraction.ErrEmptyResult):
		return http.StatusBadRequest, "no valid todo items could be parsed"
	case errors.Is(err, services.ErrPersistence):
		return http.StatusInternalServerError, "failed to save todo items"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

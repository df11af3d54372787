package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"todo-ai/app/metrics"
	"todo-ai/app/models"
	"todo-ai/app/services"
)

// maxFormMemory is the part of a multipart body kept in memory before spilling to disk.
const maxFormMemory = 32 << 20

// TaskRepository is the owner-scoped task storage used by TaskController.
type TaskRepository interface {
	ListTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error)
	CreateTask(ctx context.Context, draft models.DraftTask) (*models.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, update models.TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// AttachmentSaver stores an uploaded image and returns its public URL.
type AttachmentSaver interface {
	Save(ownerID, filename string, r io.Reader) (string, error)
}

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service     TaskRepository
	Attachments AttachmentSaver
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service TaskRepository, attachments AttachmentSaver, m *metrics.Metrics, logger *zap.Logger) *TaskController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &TaskController{Service: service, Attachments: attachments, Metrics: m, Logger: logger}
}

// GetTasks handles GET /tasks.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := c.Service.ListTasks(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		c.internalError(w, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /tasks. It accepts a JSON body or a multipart form with an
// optional "image" file.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())

	var (
		text          string
		attachmentURL *string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form payload")
			return
		}
		text = r.FormValue("text")

		url, err := c.saveAttachment(r, owner)
		if err != nil {
			writeError(w, http.StatusBadRequest, "image must be a picture within the size limit")
			return
		}
		attachmentURL = url
	} else {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
		text = body.Text
	}

	text = strings.TrimSpace(text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "task text is required")
		return
	}

	task, err := c.Service.CreateTask(r.Context(), models.DraftTask{
		Text:          text,
		OwnerID:       owner,
		AttachmentURL: attachmentURL,
	})
	if err != nil {
		c.internalError(w, "create task", err)
		return
	}

	c.Metrics.TasksCreated.WithLabelValues(metrics.SourceDirect).Inc()
	writeJSON(w, http.StatusCreated, task)
}

// saveAttachment stores the optional "image" form file. Only invalid images are errors;
// a failed write is logged and the task is created without the image.
func (c *TaskController) saveAttachment(r *http.Request, owner string) (*string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	url, err := c.Attachments.Save(owner, header.Filename, file)
	if errors.Is(err, services.ErrInvalidAttachment) {
		return nil, err
	}
	if err != nil {
		c.Logger.Warn("attachment upload failed, creating task without image",
			zap.String("owner_id", owner),
			zap.Error(err),
		)
		return nil, nil
	}
	return &url, nil
}

// GetTaskByID handles GET /tasks/{taskID}.
func (c *TaskController) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	task, err := c.Service.GetTask(r.Context(), OwnerFromContext(r.Context()), taskID)
	if errors.Is(err, services.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		c.internalError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PUT /tasks/{taskID}. Only the fields present in the body change.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	var update models.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if update.Empty() {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if update.Text != nil {
		text := strings.TrimSpace(*update.Text)
		if text == "" {
			writeError(w, http.StatusBadRequest, "task text is required")
			return
		}
		update.Text = &text
	}

	task, err := c.Service.UpdateTask(r.Context(), OwnerFromContext(r.Context()), taskID, update)
	if errors.Is(err, services.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		c.internalError(w, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{taskID}.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	err := c.Service.DeleteTask(r.Context(), OwnerFromContext(r.Context()), taskID)
	if errors.Is(err, services.ErrTaskNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		c.internalError(w, "delete task", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *TaskController) internalError(w http.ResponseWriter, op string, err error) {
	c.Logger.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

package routes

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"todo-ai/app/controllers"
	"todo-ai/app/services"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Tasks       *controllers.TaskController
	Ingest      *controllers.IngestController
	Attachments http.Handler
	Metrics     http.Handler
}

// RegisterRoutes sets up all routes for the application.
func RegisterRoutes(router *mux.Router, h Handlers, logger *zap.Logger) {
	router.Use(RequestID, LogRequests(logger), Recover(logger))

	router.HandleFunc("/healthz", controllers.Health).Methods(http.MethodGet)
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}
	if h.Attachments != nil {
		router.PathPrefix(services.AttachmentPrefix).
			Handler(http.StripPrefix(strings.TrimSuffix(services.AttachmentPrefix, "/"), h.Attachments)).
			Methods(http.MethodGet)
	}

	router.HandleFunc("/api/parse-todos", h.Ingest.ParseTodos).Methods(http.MethodPost)

	tasks := router.PathPrefix("/tasks").Subrouter()
	tasks.Use(controllers.RequireOwner)
	tasks.HandleFunc("", h.Tasks.GetTasks).Methods(http.MethodGet)
	tasks.HandleFunc("", h.Tasks.CreateTask).Methods(http.MethodPost)
	tasks.HandleFunc("/{taskID}", h.Tasks.GetTaskByID).Methods(http.MethodGet)
	tasks.HandleFunc("/{taskID}", h.Tasks.UpdateTask).Methods(http.MethodPut)
	tasks.HandleFunc("/{taskID}", h.Tasks.DeleteTask).Methods(http.MethodDelete)
}

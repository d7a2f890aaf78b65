package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chorely/chorely/internal/auth"
	"github.com/chorely/chorely/internal/models"
	pkghttp "github.com/chorely/chorely/pkg/http"
	"github.com/go-chi/chi/v5"
)

// TaskServiceInterface defines the interface for task business logic
type TaskServiceInterface interface {
	ListTasks(ctx context.Context, owner string) ([]*models.Task, error)
	GetTask(ctx context.Context, owner, id string) (*models.Task, error)
	CreateTask(ctx context.Context, owner, title, description string, completed bool) (*models.Task, error)
	UpdateTask(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, owner, id string) (*models.Task, error)
}

// TaskHandler serves the owner-scoped task routes. Every route expects
// AuthMiddleware to have run.
type TaskHandler struct {
	service TaskServiceInterface
	logger  *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(service TaskServiceInterface, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{service: service, logger: logger}
}

// CreateTaskRequest represents the request body for task creation
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Completed   bool   `json:"completed"`
}

// UpdateTaskRequest is a partial update; absent fields stay untouched
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Completed   *bool   `json:"completed,omitempty"`
}

// DataResponse wraps a resource payload
type DataResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// RegisterRoutes registers all task routes with the chi router
func (h *TaskHandler) RegisterRoutes(router chi.Router) {
	router.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)         // GET /tasks
		r.Post("/", h.CreateTask)       // POST /tasks
		r.Get("/{id}", h.GetTask)       // GET /tasks/{id}
		r.Patch("/{id}", h.UpdateTask)  // PATCH /tasks/{id}
		r.Delete("/{id}", h.DeleteTask) // DELETE /tasks/{id}
	})
}

// ListTasks returns the caller's tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil || claims.UserID == "" {
		pkghttp.WriteUnauthorized(w, "Invalid token payload")
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), claims.UserID)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	pkghttp.WriteJSON(w, http.StatusOK, DataResponse{Data: tasks})
}

// GetTask returns one of the caller's tasks
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil || claims.UserID == "" {
		pkghttp.WriteUnauthorized(w, "Invalid token payload")
		return
	}

	task, err := h.service.GetTask(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DataResponse{Data: task})
}

// CreateTask stores a new task owned by the caller
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil || claims.UserID == "" {
		pkghttp.WriteUnauthorized(w, "Invalid token payload")
		return
	}

	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	task, err := h.service.CreateTask(r.Context(), claims.UserID, req.Title, req.Description, req.Completed)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, DataResponse{Data: task})
}

// UpdateTask applies a partial update to one of the caller's tasks
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil || claims.UserID == "" {
		pkghttp.WriteUnauthorized(w, "Invalid token payload")
		return
	}

	var req UpdateTaskRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	patch := models.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
	if patch.Empty() {
		pkghttp.WriteBadRequest(w, "Request body cannot be empty.")
		return
	}

	task, err := h.service.UpdateTask(r.Context(), claims.UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DataResponse{Data: task})
}

// DeleteTask removes one of the caller's tasks and echoes it back
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil || claims.UserID == "" {
		pkghttp.WriteUnauthorized(w, "Invalid token payload")
		return
	}

	task, err := h.service.DeleteTask(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, DataResponse{
		Message: "Task deleted successfully",
		Data:    task,
	})
}

func (h *TaskHandler) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Task not found or not authorized.")
	default:
		if !errors.Is(err, models.ErrInternalServer) {
			h.logger.Error("unexpected task error", slog.Any("error", err))
		}
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

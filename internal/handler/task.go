package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskshare/taskshare/internal/auth"
	"github.com/taskshare/taskshare/internal/handler/dto"
	"github.com/taskshare/taskshare/internal/service"
)

var (
	viewTaskMessages = errorMessages{forbidden: "You do not have permission to view this task"}
	editTaskMessages = errorMessages{forbidden: "You do not have permission to edit this task"}
)

// TaskHandler serves task endpoints.
type TaskHandler struct {
	responder
	svc *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{responder: responder{logger: logger}, svc: svc}
}

// List handles GET /api/v1/tasks?task_list_id=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	listID := r.URL.Query().Get("task_list_id")

	tasks, err := h.svc.ListByTaskList(r.Context(), auth.UserFromContext(r.Context()), listID)
	if err != nil {
		h.fail(w, r, err, errorMessages{forbidden: "Unauthorized! You do not have access to this task."})
		return
	}
	ok(w, tasks, "Tasks found successfully!")
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}

	task, err := h.svc.Create(r.Context(), auth.UserFromContext(r.Context()), req.TaskListID, req.Title)
	if err != nil {
		h.fail(w, r, err, editTaskMessages)
		return
	}

	h.logger.Info("task_created",
		slog.String("task_id", task.ID),
		slog.String("task_list_id", task.TaskListID),
	)
	ok(w, task, "Task added successfully!")
}

// Get handles GET /api/v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.Get(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, viewTaskMessages)
		return
	}
	ok(w, task, "Task found successfully!")
}

// Update handles PUT /api/v1/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}

	task, err := h.svc.Update(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"), service.TaskUpdate{
		Title:       req.Title,
		IsCompleted: req.IsCompleted.Ptr(),
	})
	if err != nil {
		h.fail(w, r, err, editTaskMessages)
		return
	}
	ok(w, task, "Task updated successfully!")
}

// UpdateStatus handles PUT /api/v1/task/status-update/{id}.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.TaskStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "The is completed field must be true or false.")
		return
	}

	task, err := h.svc.UpdateStatus(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"), req.IsCompleted.Ptr())
	if err != nil {
		h.fail(w, r, err, editTaskMessages)
		return
	}
	ok(w, task, "Task status updated successfully!")
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), auth.UserFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err, editTaskMessages)
		return
	}

	h.logger.Info("task_deleted", slog.String("task_id", id))
	ok(w, nil, "Task deleted successfully!")
}

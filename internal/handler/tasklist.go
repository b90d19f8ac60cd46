package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskshare/taskshare/internal/auth"
	"github.com/taskshare/taskshare/internal/handler/dto"
	"github.com/taskshare/taskshare/internal/service"
)

var editListMessages = errorMessages{forbidden: "You do not have permission to edit this task list"}

// TaskListHandler serves task list and sharing endpoints.
type TaskListHandler struct {
	responder
	svc *service.TaskListService
}

// NewTaskListHandler creates a new TaskListHandler.
func NewTaskListHandler(svc *service.TaskListService, logger *slog.Logger) *TaskListHandler {
	return &TaskListHandler{responder: responder{logger: logger}, svc: svc}
}

// List handles GET /api/v1/task-lists.
func (h *TaskListHandler) List(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.ListOwned(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}
	ok(w, lists, "Task lists found successfully!")
}

// Create handles POST /api/v1/task-lists.
func (h *TaskListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.TaskListRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}

	list, err := h.svc.Create(r.Context(), auth.UserFromContext(r.Context()), req.Name)
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}

	h.logger.Info("task_list_created",
		slog.String("task_list_id", list.ID),
		slog.String("user_id", list.OwnerID),
	)
	ok(w, list, "Task list added successfully!")
}

// Get handles GET /api/v1/task-lists/{id}.
func (h *TaskListHandler) Get(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Get(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}
	ok(w, list, "Task list found successfully!")
}

// Update handles PUT /api/v1/task-lists/{id}.
func (h *TaskListHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.TaskListRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}

	list, err := h.svc.Rename(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, r, err, editListMessages)
		return
	}
	ok(w, list, "Task list updated successfully!")
}

// Delete handles DELETE /api/v1/task-lists/{id}.
func (h *TaskListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), auth.UserFromContext(r.Context()), id); err != nil {
		h.fail(w, r, err, editListMessages)
		return
	}

	h.logger.Info("task_list_deleted", slog.String("task_list_id", id))
	ok(w, nil, "Task list deleted successfully!")
}

// Share handles POST /api/v1/task-list/share/{id}.
func (h *TaskListHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req dto.ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}
	canEdit := req.IsEdit.True()

	user := auth.UserFromContext(r.Context())
	share, err := h.svc.Grant(r.Context(), user, chi.URLParam(r, "id"), req.UserID, canEdit)
	if err != nil {
		h.fail(w, r, err, errorMessages{forbidden: "Only the owner can share this task list."})
		return
	}

	h.logger.Info("task_list_shared",
		slog.String("task_list_id", share.TaskListID),
		slog.String("grantee_id", share.UserID),
		slog.Bool("is_edit", share.CanEdit),
	)
	ok(w, share, "Task list shared successfully!")
}

// Unshare handles DELETE /api/v1/task-list/share/{id}/{user_id}.
func (h *TaskListHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "id")
	granteeID := chi.URLParam(r, "user_id")

	if err := h.svc.Revoke(r.Context(), auth.UserFromContext(r.Context()), listID, granteeID); err != nil {
		h.fail(w, r, err, errorMessages{forbidden: "Only the owner can change sharing of this task list."})
		return
	}

	h.logger.Info("task_list_unshared",
		slog.String("task_list_id", listID),
		slog.String("grantee_id", granteeID),
	)
	ok(w, nil, "Task list unshared successfully!")
}

// Grantees handles GET /api/v1/task-list/share/{id}.
func (h *TaskListHandler) Grantees(w http.ResponseWriter, r *http.Request) {
	grantees, err := h.svc.ListGrantees(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}
	ok(w, grantees, "Task list users retrieved successfully.")
}

// SharedWithMe handles GET /api/v1/shared-task-lists. An empty result is
// a success.
func (h *TaskListHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.ListSharedWithMe(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}
	if len(lists) == 0 {
		ok(w, lists, "No shared task lists found.")
		return
	}
	ok(w, lists, "Shared task lists retrieved successfully.")
}

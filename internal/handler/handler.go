// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/taskshare/taskshare/internal/handler/dto"
	"github.com/taskshare/taskshare/internal/middleware"
	"github.com/taskshare/taskshare/internal/service"
)

const msgSomethingWentWrong = "Something went wrong!"

// NotFound handles unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.Fail(http.StatusNotFound, "Resource not found."))
}

// MethodNotAllowed handles known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, dto.Fail(http.StatusMethodNotAllowed, "Method not allowed."))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func ok(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, dto.OK(http.StatusOK, data, message))
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.Fail(status, message))
}

// decodeJSON reads the request body into v. An empty body decodes to the
// zero value so that missing fields surface as validation errors.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// responder maps service errors onto envelopes.
type responder struct {
	logger *slog.Logger
}

// errorMessages overrides the default messages of one endpoint.
type errorMessages struct {
	notFound  string
	forbidden string
}

func (rs responder) badBody(w http.ResponseWriter) {
	fail(w, http.StatusBadRequest, "Invalid request body.")
}

func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error, msgs errorMessages) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, service.ErrInvalidGrantee):
		fail(w, http.StatusBadRequest, "You cannot share the task list with yourself.")
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		fail(w, http.StatusUnauthorized, "Unauthenticated.")
	case errors.Is(err, service.ErrForbidden):
		fail(w, http.StatusForbidden, orDefault(msgs.forbidden, "Unauthorized!"))
	case errors.Is(err, service.ErrNotFound):
		fail(w, http.StatusNotFound, orDefault(msgs.notFound, notFoundMessage(err)))
	default:
		rs.logger.Error("internal_error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
		fail(w, http.StatusInternalServerError, msgSomethingWentWrong)
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrTaskListNotFound):
		return "Task list not found."
	case errors.Is(err, service.ErrTaskNotFound):
		return "Task not found!"
	case errors.Is(err, service.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, service.ErrShareNotFound):
		return "Task list is not shared with this user."
	}
	return "Resource not found."
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

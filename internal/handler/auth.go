package handler

import (
	"log/slog"
	"net/http"

	"github.com/taskshare/taskshare/internal/auth"
	"github.com/taskshare/taskshare/internal/handler/dto"
	"github.com/taskshare/taskshare/internal/service"
)

// AuthHandler serves registration, login and profile endpoints.
type AuthHandler struct {
	responder
	svc *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{responder: responder{logger: logger}, svc: svc}
}

// Register handles POST /api/v1/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}

	session, err := h.svc.Register(r.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Handle:          req.UserName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}

	h.logger.Info("user_registered", slog.String("user_id", session.User.ID))
	ok(w, session, "Login Successfully!")
}

// Login handles POST /api/v1/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}

	session, err := h.svc.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}

	ok(w, session, "Login Successfully!")
}

// Me handles GET /api/v1/user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		h.fail(w, r, service.ErrUnauthenticated, errorMessages{})
		return
	}
	ok(w, user, "")
}

// UpdateProfile handles POST /api/v1/user.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.badBody(w)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), auth.UserFromContext(r.Context()), service.ProfileInput{
		Name:   req.Name,
		Handle: req.UserName,
		Email:  req.Email,
	})
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}

	ok(w, map[string]any{"user": user}, "Data found successfully!")
}

// Logout handles POST /api/v1/logout. Failures answer 500, never 200.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), user); err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}

	h.logger.Info("user_logged_out", slog.String("user_id", user.ID))
	ok(w, nil, "Logout successfully")
}

// AllUsers handles GET /api/v1/all-users.
func (h *AuthHandler) AllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListOtherUsers(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err, errorMessages{})
		return
	}
	ok(w, users, "All users get successfully!")
}

package api

import (
	"net/http"

	"carrental/internal/entities"
	"carrental/internal/logger"
	"carrental/internal/service"
)

type AuthHandler struct {
	service *service.AuthService
	log     logger.ILogger
}

func NewAuthHandler(svc *service.AuthService, log logger.ILogger) *AuthHandler {
	return &AuthHandler{service: svc, log: log}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req entities.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	resp, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req entities.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Session(r.Context(), claims(r).UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req entities.PasswordUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.UpdatePassword(r.Context(), claims(r).UserID, req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Password updated")
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req entities.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.log.Error("forgot password failed", logger.Error(err))
	}
	writeMessage(w, "If the account exists, a reset link has been sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req entities.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeMessage(w, "Password has been reset")
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.GoogleAuthURL(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "google sign-in cancelled: " + msg})
		return
	}
	resp, err := h.service.GoogleCallback(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

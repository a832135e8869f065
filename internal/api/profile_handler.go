package api

import (
	"net/http"

	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/logger"
	"carrental/internal/service"
)

type ProfileHandler struct {
	service *service.ProfileService
	log     logger.ILogger
}

func NewProfileHandler(svc *service.ProfileService, log logger.ILogger) *ProfileHandler {
	return &ProfileHandler{service: svc, log: log}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), claims(r).UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req entities.ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c := claims(r)
	p, err := h.service.Update(r.Context(), c.UserID, c.Email, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, h.log, apperr.BadRequest("Invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.log, apperr.BadRequest("file is required"))
		return
	}
	defer file.Close()

	p, err := h.service.UploadAvatar(r.Context(), claims(r).UserID, header.Filename, file)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

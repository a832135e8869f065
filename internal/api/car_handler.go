package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/filter"
	"carrental/internal/logger"
	"carrental/internal/service"
)

const maxUploadBytes = 10 << 20

type CarHandler struct {
	service *service.CarService
	log     logger.ILogger
}

func NewCarHandler(svc *service.CarService, log logger.ILogger) *CarHandler {
	return &CarHandler{service: svc, log: log}
}

func (h *CarHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cars, err := h.service.ListPublic(r.Context(), filter.PublicCars{
		Search:   searchTerm(q),
		Brand:    q.Get("brand"),
		Type:     q.Get("type"),
		FuelType: q.Get("fuel_type"),
		Seats:    cast.ToInt(q.Get("seats")),
		MinPrice: cast.ToFloat64(q.Get("min_price")),
		MaxPrice: cast.ToFloat64(q.Get("max_price")),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *CarHandler) Featured(w http.ResponseWriter, r *http.Request) {
	cars, err := h.service.Featured(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	car, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (h *CarHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cars, err := h.service.ListAdmin(r.Context(), filter.AdminCars{
		Search: searchTerm(q),
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Media:  q.Get("media"),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entities.CarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	car, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req entities.CarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	car, err := h.service.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, []string{mux.Vars(r)["id"]})
}

func (h *CarHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req entities.BulkDeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	h.delete(w, r, req.IDs)
}

func (h *CarHandler) delete(w http.ResponseWriter, r *http.Request, ids []string) {
	deleted, err := h.service.Delete(r.Context(), ids)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if len(deleted) == 0 {
		writeError(w, r, h.log, apperr.NotFound("car not found"))
		return
	}
	writeJSON(w, http.StatusOK, entities.BulkDeleteResponse{Deleted: deleted})
}

// Seed takes the count from the body or, failing that, from ?count=.
func (h *CarHandler) Seed(w http.ResponseWriter, r *http.Request) {
	var req entities.SeedRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}
	if req.Count == 0 {
		req.Count = cast.ToInt(r.URL.Query().Get("count"))
	}
	cars, err := h.service.Seed(r.Context(), req.Count)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"count": len(cars)})
}

func (h *CarHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
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

	url, err := h.service.UploadImage(r.Context(), "cars", header.Filename, file)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

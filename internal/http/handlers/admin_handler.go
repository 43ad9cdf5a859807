package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/oceaniatours/passport-intake/internal/http/response"
	"github.com/oceaniatours/passport-intake/internal/service"
	"github.com/oceaniatours/passport-intake/pkg/middleware"
)

// AdminHandler serves the operator console: traveler registration, listings,
// photo replacement and the recognition audit log. Routes are mounted behind
// RequireOperator.
type AdminHandler struct {
	Tourists service.TouristService
	Uploads  service.UploadService
	MaxSize  int64
}

func NewAdminHandler(tourists service.TouristService, uploads service.UploadService, maxSize int64) *AdminHandler {
	return &AdminHandler{Tourists: tourists, Uploads: uploads, MaxSize: maxSize}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/tourists", h.createTourist)
	r.Get("/tourists", h.listTourists)
	r.Get("/tourists/{id}", h.getTourist)
	r.Delete("/tourists/{id}", h.deleteTourist)
	r.Put("/tourists/{id}/passport-photo", h.replacePhoto)
	r.Get("/ocr-logs", h.listLogs)
	r.Get("/ocr-logs/stats", h.logStats)
	return r
}

func (h *AdminHandler) createTourist(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTouristInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	created, err := h.Tourists.Create(r.Context(), &in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, created)
}

func (h *AdminHandler) listTourists(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	tourists, err := h.Tourists.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tourists)
}

func (h *AdminHandler) getTourist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	tourist, err := h.Tourists.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tourist)
}

func (h *AdminHandler) deleteTourist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	if err := h.Tourists.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) replacePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxSize)
	photo, ext, err := readPhoto(r, h.MaxSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer closeForm(r)

	meta := service.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		FileExt:   ext,
	}
	if claims := middleware.OperatorFromContext(r.Context()); claims != nil {
		meta.OperatorName = claims.Name
		meta.OperatorID = &claims.Sub
	}

	result, err := h.Uploads.ReplacePhoto(r.Context(), id, photo, docTypeFromForm(r), meta)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) listLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	var err error
	var logs any
	if link := r.URL.Query().Get("upload_link"); link != "" {
		logs, err = h.Tourists.LogsByUploadLink(r.Context(), link, limit, offset)
	} else {
		logs, err = h.Tourists.Logs(r.Context(), limit, offset)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, logs)
}

func (h *AdminHandler) logStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Tourists.LogStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

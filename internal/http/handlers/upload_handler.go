package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/http/response"
	"github.com/oceaniatours/passport-intake/internal/service"
)

// UploadHandler serves the unauthenticated traveler-facing routes. The
// upload link in the path is the only credential.
type UploadHandler struct {
	Uploads service.UploadService
	MaxSize int64
}

func NewUploadHandler(uploads service.UploadService, maxSize int64) *UploadHandler {
	return &UploadHandler{Uploads: uploads, MaxSize: maxSize}
}

func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/quality-check", h.qualityCheck)
	r.Get("/{link}", h.linkInfo)
	r.Get("/{link}/status", h.status)
	r.Post("/{link}/preview", h.preview)
	r.Post("/{link}/confirm", h.confirm)
	return r
}

func (h *UploadHandler) linkInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.Uploads.LinkInfo(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, info)
}

func (h *UploadHandler) status(w http.ResponseWriter, r *http.Request) {
	info, err := h.Uploads.Status(r.Context(), chi.URLParam(r, "link"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, info)
}

func (h *UploadHandler) preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxSize)
	photo, ext, err := readPhoto(r, h.MaxSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer closeForm(r)

	recognized, err := h.Uploads.Preview(r.Context(), chi.URLParam(r, "link"), photo, docTypeFromForm(r), service.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		FileExt:   ext,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"recognized": recognized,
	})
}

func (h *UploadHandler) confirm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxSize)
	photo, ext, err := readPhoto(r, h.MaxSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer closeForm(r)

	raw := r.FormValue("data")
	if raw == "" {
		response.BadRequest(w, "data field with the confirmed passport JSON is required")
		return
	}
	var confirmed domain.ConfirmedPassport
	if err := json.Unmarshal([]byte(raw), &confirmed); err != nil {
		response.BadRequest(w, "invalid confirmed passport JSON")
		return
	}

	tourist, err := h.Uploads.Confirm(r.Context(), chi.URLParam(r, "link"), photo, &confirmed, service.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		FileExt:   ext,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tourist)
}

func (h *UploadHandler) qualityCheck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxSize)
	photo, _, err := readPhoto(r, h.MaxSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer closeForm(r)

	response.WriteJSON(w, http.StatusOK, h.Uploads.QualityCheck(r.Context(), photo))
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oceaniatours/passport-intake/internal/http/response"
	"github.com/oceaniatours/passport-intake/internal/service"
)

type VerificationHandler struct {
	Verification service.VerificationService
}

func NewVerificationHandler(verification service.VerificationService) *VerificationHandler {
	return &VerificationHandler{Verification: verification}
}

func (h *VerificationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/request", h.request)
	r.Post("/verify", h.verify)
	r.Get("/status", h.status)
	return r
}

type verificationRequest struct {
	Email      string `json:"email"`
	UploadLink string `json:"upload_link"`
	Code       string `json:"code,omitempty"`
}

func (h *VerificationHandler) request(w http.ResponseWriter, r *http.Request) {
	var in verificationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	if err := h.Verification.RequestCode(r.Context(), in.Email, in.UploadLink); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "verification code sent",
	})
}

func (h *VerificationHandler) verify(w http.ResponseWriter, r *http.Request) {
	var in verificationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	if err := h.Verification.VerifyCode(r.Context(), in.Email, in.UploadLink, in.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"verified": true,
	})
}

func (h *VerificationHandler) status(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	link := r.URL.Query().Get("upload_link")
	if email == "" || link == "" {
		response.BadRequest(w, "email and upload_link are required")
		return
	}

	verified, err := h.Verification.IsVerified(r.Context(), email, link)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"verified": verified,
	})
}

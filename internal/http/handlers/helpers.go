package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/http/response"
	"github.com/oceaniatours/passport-intake/internal/passport/recognition"
	"github.com/oceaniatours/passport-intake/pkg/logger"
)

var allowedPhotoExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true, ".tiff": true,
}

// readPhoto pulls the "photo" part out of a multipart request, bounded by
// maxSize.
func readPhoto(r *http.Request, maxSize int64) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", domain.NewValidationError("photo", "invalid multipart form or file too large")
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		return nil, "", domain.NewValidationError("photo", "photo file is required")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != "" && !allowedPhotoExts[ext] {
		return nil, "", domain.NewValidationError("photo", "unsupported image type")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxSize {
		return nil, "", domain.NewValidationError("photo", "photo exceeds the size limit")
	}
	return data, ext, nil
}

func closeForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func docTypeFromForm(r *http.Request) recognition.DocumentType {
	switch strings.ToUpper(r.FormValue("passport_type")) {
	case "CN":
		return recognition.DocChina
	case "NZ":
		return recognition.DocNewZealand
	case "AU":
		return recognition.DocAustralia
	default:
		return recognition.DocGeneric
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > 100 {
				n = 100
			}
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *domain.ValidationError
		consistencyErr  *domain.ConsistencyError
		recognitionErr  *domain.RecognitionError
		verificationErr *domain.VerificationError
	)

	switch {
	case errors.As(err, &validationErr):
		response.WriteError(w, http.StatusBadRequest, validationErr.Message, response.CodeInvalidInput)
	case errors.As(err, &consistencyErr):
		response.WriteError(w, http.StatusConflict, consistencyErr.Error(), response.CodeConsistency)
	case errors.As(err, &recognitionErr):
		response.WriteError(w, http.StatusBadRequest,
			"passport recognition failed, please retake the photo or enter the fields manually",
			response.CodeRecognition)
	case errors.As(err, &verificationErr):
		switch verificationErr.Reason {
		case domain.VerifyReasonRateLimited:
			response.WriteError(w, http.StatusTooManyRequests, verificationErr.Message, response.CodeRateLimit)
		case domain.VerifyReasonUnverified:
			response.WriteError(w, http.StatusForbidden, verificationErr.Message, response.CodeUnverifiedEmail)
		case domain.VerifyReasonNotFound:
			response.WriteError(w, http.StatusBadRequest, verificationErr.Message, response.CodeExpiredCode)
		default:
			response.WriteError(w, http.StatusBadRequest, verificationErr.Message, response.CodeInvalidInput)
		}
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, domain.ErrAlreadyVerified):
		response.Conflict(w, domain.ErrAlreadyVerified.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "internal error")
	}
}

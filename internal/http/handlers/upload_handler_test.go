package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/http/handlers"
	"github.com/oceaniatours/passport-intake/internal/passport/recognition"
	"github.com/oceaniatours/passport-intake/internal/service"
)

// ---------- Mocks ----------

type mockUploadService struct {
	recognized *domain.RecognizedPassport
	tourist    *domain.Tourist
	replace    *service.ReplaceResult
	status     *service.StatusInfo
	err        error

	lastLink      string
	lastDocType   recognition.DocumentType
	lastConfirmed *domain.ConfirmedPassport
}

func (m *mockUploadService) Preview(_ context.Context, link string, _ []byte, docType recognition.DocumentType, _ service.RequestMeta) (*domain.RecognizedPassport, error) {
	m.lastLink = link
	m.lastDocType = docType
	return m.recognized, m.err
}

func (m *mockUploadService) Confirm(_ context.Context, link string, _ []byte, confirmed *domain.ConfirmedPassport, _ service.RequestMeta) (*domain.Tourist, error) {
	m.lastLink = link
	m.lastConfirmed = confirmed
	return m.tourist, m.err
}

func (m *mockUploadService) ReplacePhoto(_ context.Context, _ int64, _ []byte, docType recognition.DocumentType, _ service.RequestMeta) (*service.ReplaceResult, error) {
	m.lastDocType = docType
	return m.replace, m.err
}

func (m *mockUploadService) Status(_ context.Context, link string) (*service.StatusInfo, error) {
	m.lastLink = link
	return m.status, m.err
}

func (m *mockUploadService) LinkInfo(_ context.Context, _ string) (*service.LinkInfo, error) {
	return nil, m.err
}

func (m *mockUploadService) QualityCheck(_ context.Context, _ []byte) *service.QualityReport {
	return &service.QualityReport{}
}

type mockVerificationService struct {
	err      error
	verified bool
}

func (m *mockVerificationService) RequestCode(context.Context, string, string) error { return m.err }
func (m *mockVerificationService) VerifyCode(context.Context, string, string, string) error {
	return m.err
}
func (m *mockVerificationService) IsVerified(context.Context, string, string) (bool, error) {
	return m.verified, m.err
}

// ---------- Helpers ----------

func photoRequest(t *testing.T, method, url string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mp := multipart.NewWriter(&body)

	part, err := mp.CreateFormFile("photo", "passport.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("not really a jpeg"))

	for k, v := range fields {
		mp.WriteField(k, v)
	}
	mp.Close()

	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (msg, code string) {
	t.Helper()
	var out struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out.Error, out.Code
}

func uploadRouter(svc service.UploadService) chi.Router {
	r := chi.NewRouter()
	r.Mount("/upload", handlers.NewUploadHandler(svc, 10<<20).Routes())
	return r
}

// ---------- Tests ----------

func TestPreviewHandlerSuccess(t *testing.T) {
	svc := &mockUploadService{recognized: &domain.RecognizedPassport{
		FullName:       "ZHANG WEI/SAN",
		PassportNumber: "E12345678",
	}}
	r := uploadRouter(svc)

	req := photoRequest(t, http.MethodPost, "/upload/link-1/preview", map[string]string{"passport_type": "CN"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastLink != "link-1" {
		t.Errorf("link = %q", svc.lastLink)
	}
	if svc.lastDocType != recognition.DocChina {
		t.Errorf("doc type = %q, want CN", svc.lastDocType)
	}
	var out struct {
		Recognized domain.RecognizedPassport `json:"recognized"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Recognized.PassportNumber != "E12345678" {
		t.Errorf("passport number = %q", out.Recognized.PassportNumber)
	}
}

func TestPreviewHandlerMissingPhoto(t *testing.T) {
	r := uploadRouter(&mockUploadService{})

	var body bytes.Buffer
	mp := multipart.NewWriter(&body)
	mp.WriteField("passport_type", "NZ")
	mp.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload/link-1/preview", &body)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, code := decodeError(t, rec); code != "INVALID_INPUT" {
		t.Errorf("code = %q", code)
	}
}

func TestPreviewHandlerEdgeRejection(t *testing.T) {
	svc := &mockUploadService{err: domain.NewValidationError("image",
		"passport edges unclear, please lay the passport flat and retake")}
	r := uploadRouter(svc)

	req := photoRequest(t, http.MethodPost, "/upload/link-1/preview", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	msg, code := decodeError(t, rec)
	if code != "INVALID_INPUT" || !strings.Contains(msg, "retake") {
		t.Errorf("error = %q %q", msg, code)
	}
}

func TestConfirmHandlerRequiresData(t *testing.T) {
	r := uploadRouter(&mockUploadService{})

	req := photoRequest(t, http.MethodPost, "/upload/link-1/confirm", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestConfirmHandlerPassesFields(t *testing.T) {
	svc := &mockUploadService{tourist: &domain.Tourist{ID: 1, UploadStatus: domain.UploadVerified}}
	r := uploadRouter(svc)

	confirmed := domain.ConfirmedPassport{
		FullName:       "ZHANG/WEI SAN",
		PassportNumber: "E12345678",
		BirthDate:      "1990-06-01",
		ExpiryDate:     "2030-01-01",
		BirthPlace:     "Beijing",
		ContactPhone:   "+6421555000",
		ContactEmail:   "traveler@example.com",
	}
	raw, _ := json.Marshal(confirmed)

	req := photoRequest(t, http.MethodPost, "/upload/link-1/confirm", map[string]string{"data": string(raw)})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.lastConfirmed == nil || svc.lastConfirmed.PassportNumber != "E12345678" {
		t.Errorf("confirmed = %+v", svc.lastConfirmed)
	}
}

func TestConfirmHandlerAlreadyVerified(t *testing.T) {
	svc := &mockUploadService{err: domain.ErrAlreadyVerified}
	r := uploadRouter(svc)

	req := photoRequest(t, http.MethodPost, "/upload/link-1/confirm", map[string]string{"data": "{}"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, code := decodeError(t, rec); code != "CONFLICT" {
		t.Errorf("code = %q", code)
	}
}

func TestConfirmHandlerUnverifiedEmail(t *testing.T) {
	svc := &mockUploadService{err: domain.NewVerificationError(domain.VerifyReasonUnverified,
		"email not verified, please verify your email first")}
	r := uploadRouter(svc)

	req := photoRequest(t, http.MethodPost, "/upload/link-1/confirm", map[string]string{"data": "{}"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, code := decodeError(t, rec); code != "EMAIL_NOT_VERIFIED" {
		t.Errorf("code = %q", code)
	}
}

func TestStatusHandlerNotFound(t *testing.T) {
	svc := &mockUploadService{err: domain.ErrNotFound}
	r := uploadRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/upload/no-such-link/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReplacePhotoHandlerIdentityMismatch(t *testing.T) {
	svc := &mockUploadService{err: &domain.ConsistencyError{
		Field: "number", Stored: "E12345678", Recognized: "E12345679",
	}}
	admin := handlers.NewAdminHandler(&mockTouristService{}, svc, 10<<20)
	r := chi.NewRouter()
	r.Mount("/admin", admin.Routes())

	req := photoRequest(t, http.MethodPut, "/admin/tourists/1/passport-photo", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	msg, code := decodeError(t, rec)
	if code != "IDENTITY_MISMATCH" {
		t.Errorf("code = %q", code)
	}
	if !strings.Contains(msg, "E12345679") {
		t.Errorf("message %q does not name the clashing value", msg)
	}
}

func TestReplacePhotoHandlerRecognitionFailureStillOK(t *testing.T) {
	svc := &mockUploadService{replace: &service.ReplaceResult{
		PassportPhoto: "/uploads/passport-link-1-2.jpg",
		Message:       "photo stored, but automatic recognition failed; please fill the fields manually",
	}}
	admin := handlers.NewAdminHandler(&mockTouristService{}, svc, 10<<20)
	r := chi.NewRouter()
	r.Mount("/admin", admin.Routes())

	req := photoRequest(t, http.MethodPut, "/admin/tourists/1/passport-photo", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out service.ReplaceResult
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.RecognizedData != nil {
		t.Error("recognized data should be absent")
	}
}

type mockTouristService struct {
	created *service.CreatedTourist
	err     error
}

func (m *mockTouristService) Create(_ context.Context, _ *service.CreateTouristInput) (*service.CreatedTourist, error) {
	return m.created, m.err
}
func (m *mockTouristService) Get(context.Context, int64) (*domain.Tourist, error) {
	return nil, errors.New("not implemented")
}
func (m *mockTouristService) List(context.Context, int, int) ([]domain.Tourist, error) {
	return nil, nil
}
func (m *mockTouristService) Delete(context.Context, int64) error { return nil }
func (m *mockTouristService) Logs(context.Context, int, int) ([]domain.OCRLog, error) {
	return nil, nil
}
func (m *mockTouristService) LogsByUploadLink(context.Context, string, int, int) ([]domain.OCRLog, error) {
	return nil, nil
}
func (m *mockTouristService) LogStats(context.Context) (*domain.OCRStats, error) { return nil, nil }

func TestVerificationHandlerRateLimited(t *testing.T) {
	svc := &mockVerificationService{err: domain.NewVerificationError(domain.VerifyReasonRateLimited,
		"a code was sent recently, please wait a minute before requesting another")}
	r := chi.NewRouter()
	r.Mount("/verification", handlers.NewVerificationHandler(svc).Routes())

	body, _ := json.Marshal(map[string]string{"email": "t@example.com", "upload_link": "link-1"})
	req := httptest.NewRequest(http.MethodPost, "/verification/request", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, code := decodeError(t, rec); code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q", code)
	}
}

func TestVerificationHandlerVerify(t *testing.T) {
	svc := &mockVerificationService{verified: true}
	r := chi.NewRouter()
	r.Mount("/verification", handlers.NewVerificationHandler(svc).Routes())

	body, _ := json.Marshal(map[string]string{"email": "t@example.com", "upload_link": "link-1", "code": "123456"})
	req := httptest.NewRequest(http.MethodPost, "/verification/verify", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	statusReq := httptest.NewRequest(http.MethodGet, "/verification/status?email=t@example.com&upload_link=link-1", nil)
	statusRec := httptest.NewRecorder()
	r.ServeHTTP(statusRec, statusReq)

	var out struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(statusRec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Verified {
		t.Error("verified = false")
	}
}

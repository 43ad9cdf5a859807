package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/passport/edges"
	"github.com/oceaniatours/passport-intake/internal/passport/normalize"
	"github.com/oceaniatours/passport-intake/internal/passport/recognition"
	"github.com/oceaniatours/passport-intake/internal/repo/postgres"
	"github.com/oceaniatours/passport-intake/internal/utils"
	"github.com/oceaniatours/passport-intake/pkg/events"
	"github.com/oceaniatours/passport-intake/pkg/logger"
)

// GuestOperator is the audit name for unauthenticated traveler actions.
const GuestOperator = "guest"

// Recognizer is the recognition gateway as the workflow sees it.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, docType recognition.DocumentType, attempt recognition.Attempt) (*domain.RecognizedPassport, int64, error)
}

// QualityAnalyzer produces the diagnostics attached to audit rows.
type QualityAnalyzer interface {
	Analyze(data []byte) domain.ImageDiagnostics
}

// EdgeDetector decides whether the full passport page is in frame.
type EdgeDetector interface {
	Detect(data []byte) edges.Result
}

// PhotoStore is the disk layer for passport photos.
type PhotoStore interface {
	SaveTemp(data []byte, ext string) (string, error)
	Promote(tempPath, uploadLink string) (string, error)
	Discard(path string)
	RemoveStored(name string)
	PublicPath(name string) string
}

// RequestMeta is the per-request context carried into audit rows.
type RequestMeta struct {
	OperatorName string
	OperatorID   *int64
	IPAddress    string
	UserAgent    string
	FileExt      string
}

// StatusInfo is the traveler-facing view of an upload link's state.
type StatusInfo struct {
	Status          domain.UploadStatus        `json:"status"`
	RejectionReason string                     `json:"rejection_reason,omitempty"`
	PassportPhoto   string                     `json:"passport_photo,omitempty"`
	RecognizedData  *domain.RecognizedPassport `json:"recognized_data,omitempty"`
	TourName        string                     `json:"tour_name,omitempty"`
	DepartureDate   *time.Time                 `json:"departure_date,omitempty"`
}

// LinkInfo feeds the upload page header.
type LinkInfo struct {
	TouristName     string              `json:"tourist_name"`
	SalesName       string              `json:"sales_name"`
	TourName        string              `json:"tour_name"`
	DepartureDate   *time.Time          `json:"departure_date,omitempty"`
	UploadStatus    domain.UploadStatus `json:"upload_status"`
	PassportPhoto   string              `json:"passport_photo,omitempty"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
}

// QualityReport is the standalone quality probe response.
type QualityReport struct {
	Diagnostics domain.ImageDiagnostics `json:"diagnostics"`
	Edges       edges.Result            `json:"edges"`
}

// ReplaceResult is the operator photo replacement outcome. Recognized is nil
// when the photo was stored but the engine could not read it.
type ReplaceResult struct {
	PassportPhoto  string                     `json:"passport_photo"`
	RecognizedData *domain.RecognizedPassport `json:"recognized_data,omitempty"`
	Message        string                     `json:"message"`
}

type UploadService interface {
	// Preview recognizes a passport image without persisting anything. The
	// uploaded file is discarded on every exit path.
	Preview(ctx context.Context, uploadLink string, image []byte, docType recognition.DocumentType, meta RequestMeta) (*domain.RecognizedPassport, error)
	// Confirm persists the traveler-edited field set together with the
	// photo. Requires prior email verification; refuses records that are
	// already verified.
	Confirm(ctx context.Context, uploadLink string, image []byte, confirmed *domain.ConfirmedPassport, meta RequestMeta) (*domain.Tourist, error)
	// ReplacePhoto is the operator path: new photo for an existing record,
	// guarded by the identity consistency check.
	ReplacePhoto(ctx context.Context, touristID int64, image []byte, docType recognition.DocumentType, meta RequestMeta) (*ReplaceResult, error)
	Status(ctx context.Context, uploadLink string) (*StatusInfo, error)
	LinkInfo(ctx context.Context, uploadLink string) (*LinkInfo, error)
	QualityCheck(ctx context.Context, image []byte) *QualityReport
}

type uploadService struct {
	tourists     postgres.TouristRepo
	ocrLogs      postgres.OCRLogRepo
	verification VerificationService
	recognizer   Recognizer
	analyzer     QualityAnalyzer
	detector     EdgeDetector
	photos       PhotoStore
	eventBus     events.EventBus
}

func NewUploadService(
	tourists postgres.TouristRepo,
	ocrLogs postgres.OCRLogRepo,
	verification VerificationService,
	recognizer Recognizer,
	analyzer QualityAnalyzer,
	detector EdgeDetector,
	photos PhotoStore,
	eventBus events.EventBus,
) UploadService {
	return &uploadService{
		tourists:     tourists,
		ocrLogs:      ocrLogs,
		verification: verification,
		recognizer:   recognizer,
		analyzer:     analyzer,
		detector:     detector,
		photos:       photos,
		eventBus:     eventBus,
	}
}

var birthPlacePattern = regexp.MustCompile(`^[A-Za-z\s-]+$`)

func (s *uploadService) Preview(ctx context.Context, uploadLink string, image []byte, docType recognition.DocumentType, meta RequestMeta) (*domain.RecognizedPassport, error) {
	tourist, err := s.tourists.GetByUploadLink(ctx, uploadLink)
	if err != nil {
		return nil, fmt.Errorf("look up upload link: %w", err)
	}
	if tourist == nil {
		return nil, domain.ErrNotFound
	}

	diag := s.analyzer.Analyze(image)

	if edge := s.detector.Detect(image); !edge.HasCompleteEdges {
		return nil, domain.NewValidationError("image", edge.Message)
	}

	tempPath, err := s.photos.SaveTemp(image, meta.FileExt)
	if err != nil {
		return nil, err
	}
	// Preview never keeps the file, success or not.
	defer s.photos.Discard(tempPath)

	recognized, _, err := s.recognizer.Recognize(ctx, image, docType, recognition.Attempt{
		UploadLink:    uploadLink,
		TouristID:     &tourist.ID,
		OperationType: domain.OperationPreview,
		OperatorName:  GuestOperator,
		ImagePath:     tempPath,
		ImageSize:     int64(len(image)),
		ImageQuality:  &diag,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return recognized, nil
}

func (s *uploadService) Confirm(ctx context.Context, uploadLink string, image []byte, confirmed *domain.ConfirmedPassport, meta RequestMeta) (*domain.Tourist, error) {
	if err := validateConfirmed(confirmed); err != nil {
		return nil, err
	}

	passportName, err := normalize.Name(confirmed.FullName)
	if err != nil {
		return nil, err
	}

	contactEmail := utils.NormalizeEmail(confirmed.ContactEmail)

	verified, err := s.verification.IsVerified(ctx, contactEmail, uploadLink)
	if err != nil {
		return nil, fmt.Errorf("check email verification: %w", err)
	}
	if !verified {
		return nil, domain.NewVerificationError(domain.VerifyReasonUnverified,
			"email not verified, please verify your email first")
	}

	tourist, err := s.tourists.GetByUploadLink(ctx, uploadLink)
	if err != nil {
		return nil, fmt.Errorf("look up upload link: %w", err)
	}
	if tourist == nil {
		return nil, domain.ErrNotFound
	}
	if tourist.UploadStatus == domain.UploadVerified {
		return nil, domain.ErrAlreadyVerified
	}
	if tourist.HasPassportIdentity() {
		if err := CheckIdentity(tourist, &domain.RecognizedPassport{
			FullName:       passportName,
			PassportNumber: confirmed.PassportNumber,
		}); err != nil {
			return nil, err
		}
	}

	tempPath, err := s.photos.SaveTemp(image, meta.FileExt)
	if err != nil {
		return nil, err
	}

	update := buildUpdate(passportName, confirmed, contactEmail)

	if tour, err := s.tourists.GetTour(ctx, tourist.TourID); err == nil && tour != nil {
		update.TouristType = domain.TypeAtDeparture(update.BirthDate, tour.DepartureDate)
	} else {
		update.TouristType = domain.TouristAdult
	}

	storedName, err := s.photos.Promote(tempPath, uploadLink)
	if err != nil {
		s.photos.Discard(tempPath)
		return nil, err
	}
	update.PassportPhoto = s.photos.PublicPath(storedName)

	ok, err := s.tourists.ConfirmPassport(ctx, tourist.ID, update)
	if err != nil {
		s.photos.RemoveStored(storedName)
		return nil, fmt.Errorf("persist confirmed passport: %w", err)
	}
	if !ok {
		// Lost the race against a concurrent confirmation.
		s.photos.RemoveStored(storedName)
		return nil, domain.ErrAlreadyVerified
	}

	s.auditConfirmation(ctx, tourist, update, confirmed, int64(len(image)), meta)

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.PassportVerified, events.PassportVerifiedEvent{
			TouristID:      tourist.ID,
			UploadLink:     uploadLink,
			PassportName:   update.PassportName,
			PassportNumber: update.PassportNumber,
			Nationality:    update.Nationality,
			VerifiedAt:     time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "failed to publish passport verified event", "error", err)
		}
	}

	logger.InfoContext(ctx, "passport confirmed",
		"tourist_id", tourist.ID, "passport_number", update.PassportNumber)

	return s.tourists.GetByID(ctx, tourist.ID)
}

func (s *uploadService) ReplacePhoto(ctx context.Context, touristID int64, image []byte, docType recognition.DocumentType, meta RequestMeta) (*ReplaceResult, error) {
	tourist, err := s.tourists.GetByID(ctx, touristID)
	if err != nil {
		return nil, fmt.Errorf("look up tourist: %w", err)
	}
	if tourist == nil {
		return nil, domain.ErrNotFound
	}

	diag := s.analyzer.Analyze(image)

	if edge := s.detector.Detect(image); !edge.HasCompleteEdges {
		return nil, domain.NewValidationError("image", edge.Message)
	}

	tempPath, err := s.photos.SaveTemp(image, meta.FileExt)
	if err != nil {
		return nil, err
	}

	operator := meta.OperatorName
	if operator == "" {
		operator = "admin"
	}

	recognized, _, recErr := s.recognizer.Recognize(ctx, image, docType, recognition.Attempt{
		UploadLink:    tourist.UploadLink,
		TouristID:     &tourist.ID,
		OperationType: domain.OperationUpdate,
		OperatorName:  operator,
		OperatorID:    meta.OperatorID,
		ImagePath:     tempPath,
		ImageSize:     int64(len(image)),
		ImageQuality:  &diag,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})

	if recErr == nil {
		if err := CheckIdentity(tourist, recognized); err != nil {
			s.photos.Discard(tempPath)
			return nil, err
		}
	}

	oldPhoto := tourist.PassportPhoto

	storedName, err := s.photos.Promote(tempPath, tourist.UploadLink)
	if err != nil {
		s.photos.Discard(tempPath)
		return nil, err
	}
	photoPath := s.photos.PublicPath(storedName)

	if recErr != nil {
		// Keep the photo even when the engine cannot read it; the operator
		// fills the fields in by hand.
		if err := s.tourists.SetPhoto(ctx, touristID, photoPath); err != nil {
			s.photos.RemoveStored(storedName)
			return nil, fmt.Errorf("store passport photo: %w", err)
		}
		s.removeOldPhoto(oldPhoto)
		s.publishPhotoUpdated(ctx, tourist, operator, false)

		return &ReplaceResult{
			PassportPhoto: photoPath,
			Message:       "photo stored, but automatic recognition failed; please fill the fields manually",
		}, nil
	}

	if err := s.tourists.UpdatePhotoRecognized(ctx, touristID, photoPath, recognized); err != nil {
		s.photos.RemoveStored(storedName)
		return nil, fmt.Errorf("update passport photo: %w", err)
	}
	// Only remove the previous photo once the replacement is fully stored.
	s.removeOldPhoto(oldPhoto)
	s.publishPhotoUpdated(ctx, tourist, operator, true)

	return &ReplaceResult{
		PassportPhoto:  photoPath,
		RecognizedData: recognized,
		Message:        "passport photo uploaded and recognized",
	}, nil
}

func (s *uploadService) Status(ctx context.Context, uploadLink string) (*StatusInfo, error) {
	tourist, err := s.tourists.GetByUploadLink(ctx, uploadLink)
	if err != nil {
		return nil, fmt.Errorf("look up upload link: %w", err)
	}
	if tourist == nil {
		return nil, domain.ErrNotFound
	}

	info := &StatusInfo{
		Status:          tourist.UploadStatus,
		RejectionReason: tourist.RejectionReason,
		PassportPhoto:   tourist.PassportPhoto,
		RecognizedData:  tourist.RecognizedData,
	}
	if tour, err := s.tourists.GetTour(ctx, tourist.TourID); err == nil && tour != nil {
		info.TourName = tour.ProductName
		d := tour.DepartureDate
		info.DepartureDate = &d
	}
	return info, nil
}

func (s *uploadService) LinkInfo(ctx context.Context, uploadLink string) (*LinkInfo, error) {
	tourist, err := s.tourists.GetByUploadLink(ctx, uploadLink)
	if err != nil {
		return nil, fmt.Errorf("look up upload link: %w", err)
	}
	if tourist == nil {
		return nil, domain.ErrNotFound
	}

	info := &LinkInfo{
		TouristName:     tourist.TouristName,
		SalesName:       tourist.SalesName,
		UploadStatus:    tourist.UploadStatus,
		PassportPhoto:   tourist.PassportPhoto,
		RejectionReason: tourist.RejectionReason,
	}
	if tour, err := s.tourists.GetTour(ctx, tourist.TourID); err == nil && tour != nil {
		info.TourName = tour.ProductName
		d := tour.DepartureDate
		info.DepartureDate = &d
	}
	return info, nil
}

func (s *uploadService) QualityCheck(_ context.Context, image []byte) *QualityReport {
	return &QualityReport{
		Diagnostics: s.analyzer.Analyze(image),
		Edges:       s.detector.Detect(image),
	}
}

func validateConfirmed(c *domain.ConfirmedPassport) error {
	if c == nil {
		return domain.NewValidationError("", "confirmed passport data is required")
	}
	if c.FullName == "" || c.PassportNumber == "" || c.ExpiryDate == "" ||
		c.BirthDate == "" || c.BirthPlace == "" || c.ContactPhone == "" || c.ContactEmail == "" {
		return domain.NewValidationError("",
			"name, passport number, birth date, birth place, expiry date, contact phone and email are all required")
	}
	if !utils.IsValidEmail(utils.NormalizeEmail(c.ContactEmail)) {
		return domain.NewValidationError("contact_email", "invalid email address")
	}
	if !birthPlacePattern.MatchString(c.BirthPlace) {
		return domain.NewValidationError("birth_place", "birth place may only contain letters, spaces and hyphens")
	}
	return nil
}

func buildUpdate(passportName string, c *domain.ConfirmedPassport, contactEmail string) *domain.PassportUpdate {
	nationality := normalize.CountryCode(c.Nationality)
	if nationality == "" {
		nationality = c.Nationality
	}

	birthDate := normalize.Date(c.BirthDate)
	issueDate := normalize.Date(c.IssueDate)
	expiryDate := normalize.Date(c.ExpiryDate)
	birthPlace := strings.ToUpper(strings.TrimSpace(c.BirthPlace))

	return &domain.PassportUpdate{
		PassportName:   passportName,
		PassportNumber: normalize.FoldPassportNumber(c.PassportNumber),
		Nationality:    nationality,
		Gender:         normalize.Gender(c.Gender),
		BirthPlace:     birthPlace,
		BirthDate:      normalize.DateTime(birthDate),
		IssueDate:      normalize.DateTime(issueDate),
		ExpiryDate:     normalize.DateTime(expiryDate),
		ContactPhone:   utils.NormalizePhone(c.ContactPhone),
		ContactEmail:   contactEmail,
		RecognizedData: &domain.RecognizedPassport{
			FullName:       passportName,
			PassportNumber: normalize.FoldPassportNumber(c.PassportNumber),
			Gender:         normalize.Gender(c.Gender),
			Nationality:    nationality,
			BirthDate:      birthDate,
			IssueDate:      issueDate,
			ExpiryDate:     expiryDate,
			BirthPlace:     birthPlace,
		},
	}
}

// auditConfirmation writes the confirmed snapshot into the audit trail.
// Failures here are logged, never surfaced; the confirmation already
// succeeded.
func (s *uploadService) auditConfirmation(ctx context.Context, tourist *domain.Tourist, update *domain.PassportUpdate, confirmed *domain.ConfirmedPassport, imageSize int64, meta RequestMeta) {
	logID, err := s.ocrLogs.Create(ctx, &domain.OCRLog{
		TouristID:     &tourist.ID,
		UploadLink:    tourist.UploadLink,
		OperationType: domain.OperationUpload,
		OperatorName:  GuestOperator,
		ImagePath:     update.PassportPhoto,
		ImageSize:     imageSize,
		OCRStatus:     domain.OCRSuccess,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to create confirmation audit entry", "error", err)
		return
	}
	if err := s.ocrLogs.AttachConfirmed(ctx, logID, confirmed); err != nil {
		logger.ErrorContext(ctx, "failed to attach confirmed data to audit entry", "error", err)
	}
}

func (s *uploadService) removeOldPhoto(oldPhoto string) {
	if oldPhoto != "" {
		s.photos.RemoveStored(oldPhoto)
	}
}

func (s *uploadService) publishPhotoUpdated(ctx context.Context, tourist *domain.Tourist, operator string, recognized bool) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, events.PassportPhotoUpdate, events.PassportPhotoUpdatedEvent{
		TouristID:  tourist.ID,
		UploadLink: tourist.UploadLink,
		Operator:   operator,
		Recognized: recognized,
		UpdatedAt:  time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "failed to publish photo updated event", "error", err)
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/repo/postgres"
	"github.com/oceaniatours/passport-intake/internal/utils"
	"github.com/oceaniatours/passport-intake/pkg/events"
	"github.com/oceaniatours/passport-intake/pkg/logger"
)

// CreateTouristInput is what an operator supplies when registering a
// traveler. The upload link is generated, never chosen.
type CreateTouristInput struct {
	TourID        int64  `json:"tour_id"`
	TouristName   string `json:"tourist_name"`
	SalesName     string `json:"sales_name"`
	SalespersonID *int64 `json:"salesperson_id,omitempty"`
	GroupTag      string `json:"group_tag,omitempty"`
	ContactPhone  string `json:"contact_phone,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty"`
	Remarks       string `json:"remarks,omitempty"`
}

// CreatedTourist pairs the stored record with the shareable upload URL.
type CreatedTourist struct {
	Tourist   *domain.Tourist `json:"tourist"`
	UploadURL string          `json:"upload_url"`
}

type TouristService interface {
	Create(ctx context.Context, in *CreateTouristInput) (*CreatedTourist, error)
	Get(ctx context.Context, id int64) (*domain.Tourist, error)
	List(ctx context.Context, limit, offset int) ([]domain.Tourist, error)
	// Delete removes the record and its stored passport photo.
	Delete(ctx context.Context, id int64) error

	Logs(ctx context.Context, limit, offset int) ([]domain.OCRLog, error)
	LogsByUploadLink(ctx context.Context, link string, limit, offset int) ([]domain.OCRLog, error)
	LogStats(ctx context.Context) (*domain.OCRStats, error)
}

type touristService struct {
	tourists postgres.TouristRepo
	ocrLogs  postgres.OCRLogRepo
	photos   PhotoStore
	eventBus events.EventBus
	baseURL  string
}

func NewTouristService(
	tourists postgres.TouristRepo,
	ocrLogs postgres.OCRLogRepo,
	photos PhotoStore,
	eventBus events.EventBus,
	baseURL string,
) TouristService {
	return &touristService{
		tourists: tourists,
		ocrLogs:  ocrLogs,
		photos:   photos,
		eventBus: eventBus,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func (s *touristService) Create(ctx context.Context, in *CreateTouristInput) (*CreatedTourist, error) {
	if in == nil || strings.TrimSpace(in.TouristName) == "" {
		return nil, domain.NewValidationError("tourist_name", "tourist name is required")
	}
	if in.TourID <= 0 {
		return nil, domain.NewValidationError("tour_id", "tour id is required")
	}

	email := utils.NormalizeEmail(in.ContactEmail)
	if email != "" && !utils.IsValidEmail(email) {
		return nil, domain.NewValidationError("contact_email", "invalid email address")
	}

	tour, err := s.tourists.GetTour(ctx, in.TourID)
	if err != nil {
		return nil, fmt.Errorf("look up tour: %w", err)
	}
	if tour == nil {
		return nil, domain.ErrNotFound
	}

	tourist, err := s.tourists.Create(ctx, &domain.Tourist{
		TourID:        in.TourID,
		TouristName:   strings.TrimSpace(in.TouristName),
		SalesName:     strings.TrimSpace(in.SalesName),
		SalespersonID: in.SalespersonID,
		GroupTag:      strings.TrimSpace(in.GroupTag),
		ContactPhone:  utils.NormalizePhone(in.ContactPhone),
		ContactEmail:  email,
		Remarks:       strings.TrimSpace(in.Remarks),
	})
	if err != nil {
		return nil, fmt.Errorf("create tourist: %w", err)
	}

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.TouristCreated, events.TouristCreatedEvent{
			TouristID:   tourist.ID,
			TouristName: tourist.TouristName,
			UploadLink:  tourist.UploadLink,
			CreatedAt:   time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "failed to publish tourist created event", "error", err)
		}
	}

	logger.InfoContext(ctx, "tourist registered",
		"tourist_id", tourist.ID, "tour_id", tourist.TourID)

	return &CreatedTourist{
		Tourist:   tourist,
		UploadURL: fmt.Sprintf("%s/upload/%s", s.baseURL, tourist.UploadLink),
	}, nil
}

func (s *touristService) Get(ctx context.Context, id int64) (*domain.Tourist, error) {
	tourist, err := s.tourists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tourist == nil {
		return nil, domain.ErrNotFound
	}
	return tourist, nil
}

func (s *touristService) List(ctx context.Context, limit, offset int) ([]domain.Tourist, error) {
	return s.tourists.List(ctx, limit, offset)
}

func (s *touristService) Delete(ctx context.Context, id int64) error {
	tourist, err := s.tourists.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete tourist: %w", err)
	}
	if tourist == nil {
		return domain.ErrNotFound
	}
	if tourist.PassportPhoto != "" {
		s.photos.RemoveStored(tourist.PassportPhoto)
	}
	logger.InfoContext(ctx, "tourist deleted", "tourist_id", id)
	return nil
}

func (s *touristService) Logs(ctx context.Context, limit, offset int) ([]domain.OCRLog, error) {
	return s.ocrLogs.List(ctx, limit, offset)
}

func (s *touristService) LogsByUploadLink(ctx context.Context, link string, limit, offset int) ([]domain.OCRLog, error) {
	return s.ocrLogs.ListByUploadLink(ctx, link, limit, offset)
}

func (s *touristService) LogStats(ctx context.Context) (*domain.OCRStats, error) {
	return s.ocrLogs.Stats(ctx)
}

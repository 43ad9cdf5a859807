// Package recognition calls the vision model that reads passport pages and
// turns its free-form answer into a normalized field set. Every call leaves
// an audit row behind, whether it succeeds or not.
package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	openai "github.com/sashabaranov/go-openai"

	"github.com/oceaniatours/passport-intake/internal/domain"
	"github.com/oceaniatours/passport-intake/internal/passport/normalize"
	"github.com/oceaniatours/passport-intake/pkg/logger"
)

// Config mirrors the recognition section of the service configuration.
type Config struct {
	Model         string
	Timeout       time.Duration
	MaxTokens     int
	Temperature   float32
	MaxImageWidth int
	JPEGQuality   int
}

// chatCompleter is the slice of the OpenAI client the gateway uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// AuditTrail records the lifecycle of one recognition attempt. Implemented
// by the ocr_logs repository. Audit failures are logged and swallowed; a
// broken audit store must not block recognition.
type AuditTrail interface {
	Create(ctx context.Context, entry *domain.OCRLog) (int64, error)
	SetStatus(ctx context.Context, id int64, status domain.OCRStatus) error
	Finish(ctx context.Context, id int64, status domain.OCRStatus, durationMs int64, data *domain.RecognizedPassport, ocrError string) error
}

// Attempt carries the caller context attached to the audit row.
type Attempt struct {
	UploadLink    string
	TouristID     *int64
	OperationType domain.OperationType
	OperatorName  string
	OperatorID    *int64
	ImagePath     string
	ImageSize     int64
	ImageQuality  *domain.ImageDiagnostics
	IPAddress     string
	UserAgent     string
}

type Gateway struct {
	client chatCompleter
	audit  AuditTrail
	cfg    Config
}

func NewGateway(apiKey string, audit AuditTrail, cfg Config) *Gateway {
	return &Gateway{client: openai.NewClient(apiKey), audit: audit, cfg: cfg}
}

// NewGatewayWithClient injects the completion client directly. Tests use it.
func NewGatewayWithClient(client chatCompleter, audit AuditTrail, cfg Config) *Gateway {
	return &Gateway{client: client, audit: audit, cfg: cfg}
}

// rawPassport matches the JSON shape the prompt asks for.
type rawPassport struct {
	FullName       string `json:"fullName"`
	ChineseName    string `json:"chineseName"`
	PassportNumber string `json:"passportNumber"`
	Gender         string `json:"gender"`
	Nationality    string `json:"nationality"`
	BirthDate      string `json:"birthDate"`
	IssueDate      string `json:"issueDate"`
	ExpiryDate     string `json:"expiryDate"`
	BirthPlace     string `json:"birthPlace"`
}

// Recognize sends the image to the vision model and returns the normalized
// field set plus the id of the audit row it wrote. The model call runs under
// the configured timeout; hitting it counts as a failed recognition, not a
// retryable condition.
func (g *Gateway) Recognize(ctx context.Context, imageData []byte, docType DocumentType, attempt Attempt) (*domain.RecognizedPassport, int64, error) {
	start := time.Now()

	logID, err := g.audit.Create(ctx, &domain.OCRLog{
		TouristID:     attempt.TouristID,
		UploadLink:    attempt.UploadLink,
		OperationType: attempt.OperationType,
		OperatorName:  attempt.OperatorName,
		OperatorID:    attempt.OperatorID,
		ImagePath:     attempt.ImagePath,
		ImageSize:     attempt.ImageSize,
		ImageQuality:  attempt.ImageQuality,
		OCRStatus:     domain.OCRPending,
		OCRModel:      g.cfg.Model,
		IPAddress:     attempt.IPAddress,
		UserAgent:     attempt.UserAgent,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to create recognition audit entry", "error", err)
	}

	data, recErr := g.recognize(ctx, imageData, docType, logID)
	elapsed := time.Since(start).Milliseconds()

	if recErr != nil {
		g.finish(ctx, logID, domain.OCRFailed, elapsed, nil, recErr.Error())
		logger.WarnContext(ctx, "passport recognition failed",
			"duration_ms", elapsed, "error", recErr)
		return nil, logID, &domain.RecognitionError{Cause: recErr}
	}

	g.finish(ctx, logID, domain.OCRSuccess, elapsed, data, "")
	logger.InfoContext(ctx, "passport recognition succeeded", "duration_ms", elapsed)
	return data, logID, nil
}

func (g *Gateway) recognize(ctx context.Context, imageData []byte, docType DocumentType, logID int64) (*domain.RecognizedPassport, error) {
	encoded := g.encodeForUpload(ctx, imageData)

	if logID != 0 {
		if err := g.audit.SetStatus(ctx, logID, domain.OCRProcessing); err != nil {
			logger.ErrorContext(ctx, "failed to mark recognition audit entry processing", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(docType),
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: userPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + encoded,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}

	payload, ok := extractJSON(resp.Choices[0].Message.Content)
	if !ok {
		return nil, errors.New("no parseable passport data in response")
	}

	var raw rawPassport
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, err
	}

	return g.normalizeFields(raw), nil
}

// encodeForUpload downscales and re-encodes the image to keep the payload
// small, then base64s it. Preprocessing failure falls back to the original
// bytes untouched.
func (g *Gateway) encodeForUpload(ctx context.Context, imageData []byte) string {
	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		logger.WarnContext(ctx, "recognition preprocess decode failed, sending original image", "error", err)
		return base64.StdEncoding.EncodeToString(imageData)
	}

	if img.Bounds().Dx() > g.cfg.MaxImageWidth {
		img = imaging.Resize(img, g.cfg.MaxImageWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(g.cfg.JPEGQuality)); err != nil {
		logger.WarnContext(ctx, "recognition preprocess encode failed, sending original image", "error", err)
		return base64.StdEncoding.EncodeToString(imageData)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func (g *Gateway) normalizeFields(raw rawPassport) *domain.RecognizedPassport {
	nationality := normalize.CountryCode(raw.Nationality)
	if nationality == "" {
		nationality = raw.Nationality
	}

	return &domain.RecognizedPassport{
		FullName:       strings.ReplaceAll(raw.FullName, "-", " "),
		ChineseName:    raw.ChineseName,
		PassportNumber: normalize.FoldPassportNumber(raw.PassportNumber),
		Gender:         normalize.Gender(raw.Gender),
		Nationality:    nationality,
		BirthDate:      normalize.Date(raw.BirthDate),
		IssueDate:      normalize.Date(raw.IssueDate),
		ExpiryDate:     normalize.Date(raw.ExpiryDate),
		BirthPlace:     normalize.BirthPlace(raw.BirthPlace),
	}
}

func (g *Gateway) finish(ctx context.Context, logID int64, status domain.OCRStatus, durationMs int64, data *domain.RecognizedPassport, ocrError string) {
	if logID == 0 {
		return
	}
	if err := g.audit.Finish(ctx, logID, status, durationMs, data, ocrError); err != nil {
		logger.ErrorContext(ctx, "failed to finalize recognition audit entry", "error", err)
	}
}

// extractJSON pulls the first JSON object out of the model's answer. The
// model sometimes wraps it in prose or a code fence.
func extractJSON(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

package domain

import "time"

type OperationType string

const (
	OperationPreview OperationType = "preview"
	OperationUpload  OperationType = "upload"
	OperationUpdate  OperationType = "update"
)

type OCRStatus string

const (
	OCRPending    OCRStatus = "pending"
	OCRProcessing OCRStatus = "processing"
	OCRSuccess    OCRStatus = "success"
	OCRFailed     OCRStatus = "failed"
)

// ImageDiagnostics is the quality snapshot attached to an audit entry.
type ImageDiagnostics struct {
	IsValid  bool     `json:"is_valid"`
	Issues   []string `json:"issues,omitempty"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Format   string   `json:"format,omitempty"`
	MeanBrightness  float64 `json:"mean_brightness,omitempty"`
	DarkRatio       float64 `json:"dark_ratio,omitempty"`
	OverexposeRatio float64 `json:"overexpose_ratio,omitempty"`
}

// OCRLog is one audit entry per image submission. Rows are written at
// submission time, finalized when recognition completes, and never touched
// again except to attach the data the user ultimately confirmed.
type OCRLog struct {
	ID         int64         `json:"id"`
	TouristID  *int64        `json:"tourist_id,omitempty"`
	UploadLink string        `json:"upload_link"`

	OperationType OperationType `json:"operation_type"`
	OperatorName  string        `json:"operator_name"`
	OperatorID    *int64        `json:"operator_id,omitempty"`

	ImagePath   string            `json:"image_path"`
	ImageSize   int64             `json:"image_size"`
	ImageQuality *ImageDiagnostics `json:"image_quality,omitempty"`

	OCRStatus     OCRStatus           `json:"ocr_status"`
	OCRModel      string              `json:"ocr_model"`
	OCRDurationMs int64               `json:"ocr_duration_ms"`
	RecognizedData *RecognizedPassport `json:"recognized_data,omitempty"`
	OCRError      string              `json:"ocr_error,omitempty"`

	ConfirmedData *ConfirmedPassport `json:"confirmed_data,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// OCRStats is the aggregate view over audit entries.
type OCRStats struct {
	TotalCount    int64   `json:"total_count"`
	SuccessCount  int64   `json:"success_count"`
	FailedCount   int64   `json:"failed_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

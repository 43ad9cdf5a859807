package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

// OCRLogRepo is the audit trail for every image submission. Rows are
// append-mostly: created at submission, finalized once, and optionally
// annotated with the data the user confirmed.
type OCRLogRepo interface {
	Create(ctx context.Context, entry *domain.OCRLog) (int64, error)
	SetStatus(ctx context.Context, id int64, status domain.OCRStatus) error
	Finish(ctx context.Context, id int64, status domain.OCRStatus, durationMs int64, data *domain.RecognizedPassport, ocrError string) error
	AttachConfirmed(ctx context.Context, id int64, data *domain.ConfirmedPassport) error
	List(ctx context.Context, limit, offset int) ([]domain.OCRLog, error)
	ListByUploadLink(ctx context.Context, link string, limit, offset int) ([]domain.OCRLog, error)
	Stats(ctx context.Context) (*domain.OCRStats, error)
}

type OCRLogRepoImpl struct{ pool *pgxpool.Pool }

func NewOCRLogRepo(pool *pgxpool.Pool) *OCRLogRepoImpl { return &OCRLogRepoImpl{pool: pool} }

const ocrLogCols = `id, tourist_id, upload_link, operation_type, operator_name, operator_id,
image_path, image_size, image_quality,
ocr_status, ocr_model, ocr_duration_ms, recognized_data, ocr_error, confirmed_data,
ip_address, user_agent, created_at`

func (r *OCRLogRepoImpl) Create(ctx context.Context, entry *domain.OCRLog) (int64, error) {
	const q = `INSERT INTO ocr_logs (
    tourist_id, upload_link, operation_type, operator_name, operator_id,
    image_path, image_size, image_quality, ocr_status, ocr_model,
    ip_address, user_agent
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
  RETURNING id`

	var quality []byte
	if entry.ImageQuality != nil {
		var err error
		if quality, err = json.Marshal(entry.ImageQuality); err != nil {
			return 0, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	err := r.pool.QueryRow(ctx, q,
		entry.TouristID, entry.UploadLink, entry.OperationType, entry.OperatorName, entry.OperatorID,
		entry.ImagePath, entry.ImageSize, quality, entry.OCRStatus, entry.OCRModel,
		entry.IPAddress, entry.UserAgent,
	).Scan(&id)
	return id, err
}

func (r *OCRLogRepoImpl) SetStatus(ctx context.Context, id int64, status domain.OCRStatus) error {
	const q = `UPDATE ocr_logs SET ocr_status=$2 WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, status)
	return err
}

func (r *OCRLogRepoImpl) Finish(ctx context.Context, id int64, status domain.OCRStatus, durationMs int64, data *domain.RecognizedPassport, ocrError string) error {
	const q = `UPDATE ocr_logs
    SET ocr_status=$2, ocr_duration_ms=$3, recognized_data=$4, ocr_error=$5
  WHERE id=$1`

	recognized, err := marshalRecognized(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = r.pool.Exec(ctx, q, id, status, durationMs, recognized, ocrError)
	return err
}

func (r *OCRLogRepoImpl) AttachConfirmed(ctx context.Context, id int64, data *domain.ConfirmedPassport) error {
	const q = `UPDATE ocr_logs SET confirmed_data=$2 WHERE id=$1`

	confirmed, err := json.Marshal(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = r.pool.Exec(ctx, q, id, confirmed)
	return err
}

func (r *OCRLogRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.OCRLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + ocrLogCols + ` FROM ocr_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOCRLogs(rows, limit)
}

func (r *OCRLogRepoImpl) ListByUploadLink(ctx context.Context, link string, limit, offset int) ([]domain.OCRLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + ocrLogCols + ` FROM ocr_logs WHERE upload_link=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, link, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOCRLogs(rows, limit)
}

func (r *OCRLogRepoImpl) Stats(ctx context.Context) (*domain.OCRStats, error) {
	const q = `SELECT
    count(*),
    count(*) FILTER (WHERE ocr_status = 'success'),
    count(*) FILTER (WHERE ocr_status = 'failed'),
    coalesce(avg(ocr_duration_ms) FILTER (WHERE ocr_status = 'success'), 0)
  FROM ocr_logs`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.OCRStats
	err := r.pool.QueryRow(ctx, q).Scan(&s.TotalCount, &s.SuccessCount, &s.FailedCount, &s.AvgDurationMs)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectOCRLogs(rows pgx.Rows, capHint int) ([]domain.OCRLog, error) {
	logs := make([]domain.OCRLog, 0, capHint)
	for rows.Next() {
		var l domain.OCRLog
		var quality, recognized, confirmed []byte
		if err := rows.Scan(
			&l.ID, &l.TouristID, &l.UploadLink, &l.OperationType, &l.OperatorName, &l.OperatorID,
			&l.ImagePath, &l.ImageSize, &quality,
			&l.OCRStatus, &l.OCRModel, &l.OCRDurationMs, &recognized, &l.OCRError, &confirmed,
			&l.IPAddress, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(quality) > 0 {
			l.ImageQuality = &domain.ImageDiagnostics{}
			if err := json.Unmarshal(quality, l.ImageQuality); err != nil {
				return nil, err
			}
		}
		if len(recognized) > 0 {
			l.RecognizedData = &domain.RecognizedPassport{}
			if err := json.Unmarshal(recognized, l.RecognizedData); err != nil {
				return nil, err
			}
		}
		if len(confirmed) > 0 {
			l.ConfirmedData = &domain.ConfirmedPassport{}
			if err := json.Unmarshal(confirmed, l.ConfirmedData); err != nil {
				return nil, err
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

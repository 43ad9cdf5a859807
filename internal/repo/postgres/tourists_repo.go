package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

type TouristRepo interface {
	Create(ctx context.Context, in *domain.Tourist) (*domain.Tourist, error)
	GetByID(ctx context.Context, id int64) (*domain.Tourist, error)
	GetByUploadLink(ctx context.Context, link string) (*domain.Tourist, error)
	List(ctx context.Context, limit, offset int) ([]domain.Tourist, error)
	// ConfirmPassport writes the confirmed field set and flips the record to
	// verified, but only if it is not verified already. Returns false when
	// the record was already verified or does not exist.
	ConfirmPassport(ctx context.Context, id int64, up *domain.PassportUpdate) (bool, error)
	// UpdatePhotoRecognized swaps the stored photo and recognized snapshot
	// without touching the canonical passport fields. Operator path only.
	UpdatePhotoRecognized(ctx context.Context, id int64, photo string, recognized *domain.RecognizedPassport) error
	// SetPhoto replaces just the stored photo path.
	SetPhoto(ctx context.Context, id int64, photo string) error
	SetStatus(ctx context.Context, id int64, status domain.UploadStatus, reason string) error
	Delete(ctx context.Context, id int64) (*domain.Tourist, error)

	GetTour(ctx context.Context, tourID int64) (*domain.Tour, error)
}

type TouristRepoImpl struct{ pool *pgxpool.Pool }

func NewTouristRepo(pool *pgxpool.Pool) *TouristRepoImpl { return &TouristRepoImpl{pool: pool} }

const touristCols = `id, tour_id, tourist_name, sales_name, salesperson_id, group_tag,
contact_phone, contact_email, remarks, tourist_type,
passport_photo, passport_name, passport_number, nationality, gender, birth_place,
passport_issue_date, passport_expiry_date, passport_birth_date,
upload_link, upload_status, rejection_reason, recognized_data,
created_at, updated_at`

func scanTourist(row pgx.Row) (*domain.Tourist, error) {
	var t domain.Tourist
	var recognized []byte
	err := row.Scan(
		&t.ID, &t.TourID, &t.TouristName, &t.SalesName, &t.SalespersonID, &t.GroupTag,
		&t.ContactPhone, &t.ContactEmail, &t.Remarks, &t.TouristType,
		&t.PassportPhoto, &t.PassportName, &t.PassportNumber, &t.Nationality, &t.Gender, &t.BirthPlace,
		&t.PassportIssueDate, &t.PassportExpiryDate, &t.PassportBirthDate,
		&t.UploadLink, &t.UploadStatus, &t.RejectionReason, &recognized,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(recognized) > 0 {
		t.RecognizedData = &domain.RecognizedPassport{}
		if err := json.Unmarshal(recognized, t.RecognizedData); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func marshalRecognized(data *domain.RecognizedPassport) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	return json.Marshal(data)
}

func (r *TouristRepoImpl) Create(ctx context.Context, in *domain.Tourist) (*domain.Tourist, error) {
	const q = `INSERT INTO tourists (
    tour_id, tourist_name, sales_name, salesperson_id, group_tag,
    contact_phone, contact_email, remarks, tourist_type,
    upload_link, upload_status
  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,'pending')
  RETURNING ` + touristCols

	link := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	touristType := in.TouristType
	if touristType == "" {
		touristType = domain.TouristAdult
	}

	return scanTourist(r.pool.QueryRow(ctx, q,
		in.TourID, in.TouristName, in.SalesName, in.SalespersonID, in.GroupTag,
		in.ContactPhone, in.ContactEmail, in.Remarks, touristType,
		link,
	))
}

func (r *TouristRepoImpl) GetByID(ctx context.Context, id int64) (*domain.Tourist, error) {
	const q = `SELECT ` + touristCols + ` FROM tourists WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTourist(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TouristRepoImpl) GetByUploadLink(ctx context.Context, link string) (*domain.Tourist, error) {
	const q = `SELECT ` + touristCols + ` FROM tourists WHERE upload_link=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTourist(r.pool.QueryRow(ctx, q, link))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TouristRepoImpl) List(ctx context.Context, limit, offset int) ([]domain.Tourist, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + touristCols + ` FROM tourists ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ts := make([]domain.Tourist, 0, limit)
	for rows.Next() {
		t, err := scanTourist(rows)
		if err != nil {
			return nil, err
		}
		ts = append(ts, *t)
	}
	return ts, rows.Err()
}

func (r *TouristRepoImpl) ConfirmPassport(ctx context.Context, id int64, up *domain.PassportUpdate) (bool, error) {
	const q = `UPDATE tourists SET
    passport_name=$2, passport_number=$3, nationality=$4, gender=$5, birth_place=$6,
    passport_issue_date=$7, passport_expiry_date=$8, passport_birth_date=$9,
    passport_photo=$10, contact_phone=$11, contact_email=$12, tourist_type=$13,
    recognized_data=$14, upload_status='verified', rejection_reason='',
    tourist_name = CASE WHEN tourist_name = '' THEN $2 ELSE tourist_name END,
    updated_at=now()
  WHERE id=$1 AND upload_status <> 'verified'`

	recognized, err := marshalRecognized(up.RecognizedData)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id,
		up.PassportName, up.PassportNumber, up.Nationality, up.Gender, up.BirthPlace,
		up.IssueDate, up.ExpiryDate, up.BirthDate,
		up.PassportPhoto, up.ContactPhone, up.ContactEmail, up.TouristType,
		recognized,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *TouristRepoImpl) UpdatePhotoRecognized(ctx context.Context, id int64, photo string, recognized *domain.RecognizedPassport) error {
	const q = `UPDATE tourists SET passport_photo=$2, recognized_data=$3, updated_at=now() WHERE id=$1`

	data, err := marshalRecognized(recognized)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = r.pool.Exec(ctx, q, id, photo, data)
	return err
}

func (r *TouristRepoImpl) SetPhoto(ctx context.Context, id int64, photo string) error {
	const q = `UPDATE tourists SET passport_photo=$2, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, photo)
	return err
}

func (r *TouristRepoImpl) SetStatus(ctx context.Context, id int64, status domain.UploadStatus, reason string) error {
	const q = `UPDATE tourists SET upload_status=$2, rejection_reason=$3, updated_at=now() WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id, status, reason)
	return err
}

func (r *TouristRepoImpl) Delete(ctx context.Context, id int64) (*domain.Tourist, error) {
	const q = `DELETE FROM tourists WHERE id=$1 RETURNING ` + touristCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t, err := scanTourist(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TouristRepoImpl) GetTour(ctx context.Context, tourID int64) (*domain.Tour, error) {
	const q = `SELECT id, product_name, departure_date FROM tours WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var t domain.Tour
	err := r.pool.QueryRow(ctx, q, tourID).Scan(&t.ID, &t.ProductName, &t.DepartureDate)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

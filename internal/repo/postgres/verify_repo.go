package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oceaniatours/passport-intake/internal/domain"
)

// VerifyRepo stores email verification codes, one active row per
// (email, upload link) pair. Codes are stored bcrypt-hashed.
type VerifyRepo interface {
	// Upsert replaces the pair's code, resetting attempts and the verified
	// flag.
	Upsert(ctx context.Context, email, uploadLink, codeHash string, expiresAt time.Time) error
	Get(ctx context.Context, email, uploadLink string) (*domain.EmailVerification, error)
	// IncrementAttempts bumps the counter and returns the new value.
	IncrementAttempts(ctx context.Context, id int64) (int, error)
	MarkVerified(ctx context.Context, id int64) error
	// IsVerified reports whether the pair holds a verified, unexpired row.
	IsVerified(ctx context.Context, email, uploadLink string) (bool, error)
	// DeleteExpired removes long-dead rows (maintenance).
	DeleteExpired(ctx context.Context) (int64, error)
}

type VerifyRepoImpl struct{ pool *pgxpool.Pool }

func NewVerifyRepo(pool *pgxpool.Pool) *VerifyRepoImpl { return &VerifyRepoImpl{pool: pool} }

func (r *VerifyRepoImpl) Upsert(ctx context.Context, email, uploadLink, codeHash string, expiresAt time.Time) error {
	const q = `INSERT INTO email_verifications (email, upload_link, code_hash, verified, attempts, expires_at, created_at)
  VALUES ($1, $2, $3, false, 0, $4, now())
  ON CONFLICT (email, upload_link) DO UPDATE
  SET code_hash=$3, verified=false, attempts=0, expires_at=$4, created_at=now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, email, uploadLink, codeHash, expiresAt)
	return err
}

func (r *VerifyRepoImpl) Get(ctx context.Context, email, uploadLink string) (*domain.EmailVerification, error) {
	const q = `SELECT id, email, upload_link, code_hash, verified, attempts, expires_at, created_at
  FROM email_verifications
  WHERE lower(email)=lower($1) AND upload_link=$2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var v domain.EmailVerification
	err := r.pool.QueryRow(ctx, q, email, uploadLink).Scan(
		&v.ID, &v.Email, &v.UploadLink, &v.CodeHash, &v.Verified, &v.Attempts, &v.ExpiresAt, &v.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VerifyRepoImpl) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	const q = `UPDATE email_verifications SET attempts=attempts+1 WHERE id=$1 RETURNING attempts`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var attempts int
	err := r.pool.QueryRow(ctx, q, id).Scan(&attempts)
	return attempts, err
}

func (r *VerifyRepoImpl) MarkVerified(ctx context.Context, id int64) error {
	const q = `UPDATE email_verifications SET verified=true WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func (r *VerifyRepoImpl) IsVerified(ctx context.Context, email, uploadLink string) (bool, error) {
	const q = `SELECT EXISTS (
    SELECT 1 FROM email_verifications
    WHERE lower(email)=lower($1) AND upload_link=$2 AND verified AND expires_at > now()
  )`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var ok bool
	err := r.pool.QueryRow(ctx, q, email, uploadLink).Scan(&ok)
	return ok, err
}

func (r *VerifyRepoImpl) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM email_verifications WHERE expires_at < now() - interval '1 day'`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

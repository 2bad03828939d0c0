package postgres

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
)

type EnrollmentsRepository struct {
	db DBTX
}

func NewEnrollmentsRepository(db DBTX) *EnrollmentsRepository {
	return &EnrollmentsRepository{db: db}
}

func (r *EnrollmentsRepository) Put(ctx context.Context, p domain.PendingMFA) error {
	query :=
		`INSERT INTO mfa_enrollments (user_id, mfa_kind, secret, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET
		     mfa_kind   = EXCLUDED.mfa_kind,
		     secret     = EXCLUDED.secret,
		     created_at = EXCLUDED.created_at`

	if _, err := r.db.ExecContext(ctx, query, p.UserID, string(p.Kind), p.Secret, p.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *EnrollmentsRepository) Get(ctx context.Context, userID string) (domain.PendingMFA, error) {
	query := `SELECT user_id, mfa_kind, secret, created_at FROM mfa_enrollments WHERE user_id = $1`

	var (
		p    domain.PendingMFA
		kind string
	)
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &kind, &p.Secret, &p.CreatedAt); err != nil {
		return domain.PendingMFA{}, mapNotFound(err)
	}
	p.Kind = domain.MFAKind(kind)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (r *EnrollmentsRepository) Delete(ctx context.Context, userID string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM mfa_enrollments WHERE user_id = $1`, userID))
}

package sqlite

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
)

type enrollmentsRepo struct {
	db dbtx
}

func (r *enrollmentsRepo) Put(ctx context.Context, p domain.PendingMFA) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mfa_enrollments (user_id, mfa_kind, secret, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     mfa_kind   = excluded.mfa_kind,
		     secret     = excluded.secret,
		     created_at = excluded.created_at`,
		p.UserID, string(p.Kind), p.Secret, toMillis(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert mfa enrollment: %w", err)
	}
	return nil
}

func (r *enrollmentsRepo) Get(ctx context.Context, userID string) (domain.PendingMFA, error) {
	var (
		p         domain.PendingMFA
		kind      string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, mfa_kind, secret, created_at FROM mfa_enrollments WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &kind, &p.Secret, &createdAt)
	if err != nil {
		return domain.PendingMFA{}, mapNotFound(err)
	}
	p.Kind = domain.MFAKind(kind)
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func (r *enrollmentsRepo) Delete(ctx context.Context, userID string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM mfa_enrollments WHERE user_id = ?`, userID))
}

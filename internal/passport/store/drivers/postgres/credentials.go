package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
)

type CredentialsRepository struct {
	db DBTX
}

func NewCredentialsRepository(db DBTX) *CredentialsRepository {
	return &CredentialsRepository{db: db}
}

func (r *CredentialsRepository) Load(ctx context.Context, userID string) (domain.Credential, error) {
	query :=
		`SELECT user_id, password_hash, mfa_kind, mfa_secret, created_at, updated_at
		 FROM credentials WHERE user_id = $1`

	var (
		c      domain.Credential
		kind   string
		secret sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&c.UserID, &c.PasswordHash, &kind, &secret, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.MFA = domain.MFAKind(kind)
	c.MFASecret = secret.String
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	rows, err := r.db.QueryContext(ctx,
		`SELECT password_hash, changed_at FROM password_history
		 WHERE user_id = $1 ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var e domain.PasswordHistoryEntry
		if err := rows.Scan(&e.Hash, &e.ChangedAt); err != nil {
			return domain.Credential{}, fmt.Errorf("db error: %w", err)
		}
		e.ChangedAt = e.ChangedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.Credential{}, fmt.Errorf("db error: %w", err)
	}
	c.History = domain.NewPasswordHistory(entries...)

	return c, nil
}

func (r *CredentialsRepository) Save(ctx context.Context, c domain.Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return withTx(ctx, r.db, func(db DBTX) error {
		upsert :=
			`INSERT INTO credentials (user_id, password_hash, mfa_kind, mfa_secret, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (user_id) DO UPDATE SET
			     password_hash = EXCLUDED.password_hash,
			     mfa_kind      = EXCLUDED.mfa_kind,
			     mfa_secret    = EXCLUDED.mfa_secret,
			     updated_at    = EXCLUDED.updated_at`

		if _, err := db.ExecContext(ctx, upsert,
			c.UserID, c.PasswordHash, string(c.MFA), nullString(c.MFASecret), c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		if _, err := db.ExecContext(ctx, `DELETE FROM password_history WHERE user_id = $1`, c.UserID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		for i, e := range c.History.Entries() {
			if _, err := db.ExecContext(ctx,
				`INSERT INTO password_history (user_id, seq, password_hash, changed_at) VALUES ($1, $2, $3, $4)`,
				c.UserID, i, e.Hash, e.ChangedAt,
			); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

func (r *CredentialsRepository) Delete(ctx context.Context, userID string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID))
}

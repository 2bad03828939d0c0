package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
)

type credentialsRepo struct {
	db dbtx
}

func (r *credentialsRepo) Load(ctx context.Context, userID string) (domain.Credential, error) {
	var (
		c                    domain.Credential
		kind                 string
		secret               sql.NullString
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash, mfa_kind, mfa_secret, created_at, updated_at
		 FROM credentials WHERE user_id = ?`,
		userID,
	).Scan(&c.UserID, &c.PasswordHash, &kind, &secret, &createdAt, &updatedAt)
	if err != nil {
		return domain.Credential{}, mapNotFound(err)
	}
	c.MFA = domain.MFAKind(kind)
	c.MFASecret = secret.String
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)

	rows, err := r.db.QueryContext(ctx,
		`SELECT password_hash, changed_at FROM password_history
		 WHERE user_id = ? ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("load password history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var (
			e         domain.PasswordHistoryEntry
			changedAt int64
		)
		if err := rows.Scan(&e.Hash, &changedAt); err != nil {
			return domain.Credential{}, fmt.Errorf("scan password history: %w", err)
		}
		e.ChangedAt = fromMillis(changedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.Credential{}, fmt.Errorf("load password history: %w", err)
	}
	c.History = domain.NewPasswordHistory(entries...)

	return c, nil
}

func (r *credentialsRepo) Save(ctx context.Context, c domain.Credential) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return inTx(ctx, r.db, func(db dbtx) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO credentials (user_id, password_hash, mfa_kind, mfa_secret, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET
			     password_hash = excluded.password_hash,
			     mfa_kind      = excluded.mfa_kind,
			     mfa_secret    = excluded.mfa_secret,
			     updated_at    = excluded.updated_at`,
			c.UserID,
			c.PasswordHash,
			string(c.MFA),
			mapStringNull(c.MFASecret),
			toMillis(c.CreatedAt),
			toMillis(c.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert credential: %w", err)
		}

		if _, err := db.ExecContext(ctx, `DELETE FROM password_history WHERE user_id = ?`, c.UserID); err != nil {
			return fmt.Errorf("clear password history: %w", err)
		}

		for i, e := range c.History.Entries() {
			if _, err := db.ExecContext(ctx,
				`INSERT INTO password_history (user_id, seq, password_hash, changed_at) VALUES (?, ?, ?, ?)`,
				c.UserID, i, e.Hash, toMillis(e.ChangedAt),
			); err != nil {
				return fmt.Errorf("insert password history: %w", err)
			}
		}
		return nil
	})
}

func (r *credentialsRepo) Delete(ctx context.Context, userID string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID))
}

package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, display_name, user_type, group_ids, state, last_login, created_at, updated_at`

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Username,
		u.DisplayName,
		string(u.Type),
		joinGroups(u.Groups),
		string(u.State),
		mapOptionalMillis(u.LastLogin),
		toMillis(u.CreatedAt),
		toMillis(u.UpdatedAt),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`,
		toMillis(at), toMillis(at), id,
	))
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id))
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                    domain.User
		userType, state      string
		groups               string
		lastLogin            sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.DisplayName,
		&userType,
		&groups,
		&state,
		&lastLogin,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.User{}, err
	}

	u.Type = domain.UserType(userType)
	u.State = domain.UserState(state)
	u.Groups = splitGroups(groups)
	u.LastLogin = mapNullMillis(lastLogin)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

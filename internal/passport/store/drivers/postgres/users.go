package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
)

type UsersRepository struct {
	db DBTX
}

func NewUsersRepository(db DBTX) *UsersRepository {
	return &UsersRepository{db: db}
}

const selectUser = `SELECT id, username, display_name, user_type, group_ids, state, last_login, created_at, updated_at
		 FROM users`

func (r *UsersRepository) Create(ctx context.Context, u domain.User) error {
	query :=
		`INSERT INTO users (id, username, display_name, user_type, group_ids, state, last_login, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.Username,
		u.DisplayName,
		string(u.Type),
		strings.Join(u.Groups, " "),
		string(u.State),
		nullTime(u.LastLogin),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return mapUnique(err)
	}
	return nil
}

func (r *UsersRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.get(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.get(ctx, selectUser+` WHERE username = $1`, username)
}

func (r *UsersRepository) get(ctx context.Context, query string, arg string) (domain.User, error) {
	var (
		u               domain.User
		userType, state string
		groups          string
		lastLogin       sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.DisplayName, &userType, &groups, &state,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Type = domain.UserType(userType)
	u.State = domain.UserState(state)
	u.Groups = splitGroups(groups)
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		u.LastLogin = &t
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *UsersRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query :=
		`UPDATE users SET last_login = $1, updated_at = $1
		 WHERE id = $2`

	return expectOne(r.db.ExecContext(ctx, query, at, id))
}

func (r *UsersRepository) Delete(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id))
}

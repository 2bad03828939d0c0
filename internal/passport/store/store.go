package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrDuplicateID and ErrDuplicateUsername refine ErrAlreadyExists so
	// account creation can tell an id collision (retry) from a taken name.
	ErrDuplicateID       = fmt.Errorf("%w: id", ErrAlreadyExists)
	ErrDuplicateUsername = fmt.Errorf("%w: username", ErrAlreadyExists)
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories so a transaction can hand out
// the same repositories bound to the transaction.
type Store interface {
	Users() Users
	Credentials() Credentials
	Enrollments() Enrollments

	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// Create inserts a new user. Conflicts return ErrDuplicateID or
	// ErrDuplicateUsername.
	Create(ctx context.Context, u domain.User) error

	GetByID(ctx context.Context, id string) (domain.User, error)

	// GetByUsername is used during password login.
	GetByUsername(ctx context.Context, username string) (domain.User, error)

	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// Delete cascades to the user's credential and password history.
	Delete(ctx context.Context, id string) error
}

// Credentials persists one domain.Credential per user, history included.
type Credentials interface {
	// Load returns ErrNotFound when the user has no credential.
	Load(ctx context.Context, userID string) (domain.Credential, error)

	// Save upserts the credential and replaces its history atomically.
	Save(ctx context.Context, cred domain.Credential) error

	Delete(ctx context.Context, userID string) error
}

// Enrollments holds at most one unconfirmed MFA enrollment per user.
type Enrollments interface {
	// Put replaces any pending enrollment for the user.
	Put(ctx context.Context, p domain.PendingMFA) error

	// Get returns ErrNotFound when nothing is pending.
	Get(ctx context.Context, userID string) (domain.PendingMFA, error)

	Delete(ctx context.Context, userID string) error
}

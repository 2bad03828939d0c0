package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/passport/internal/passport/domain"
	"github.com/aussiebroadwan/passport/internal/passport/store"
	"github.com/stretchr/testify/require"
)

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*txStore)(nil)
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(context.Background()))
	return s
}

func testUser(id, username string) domain.User {
	return domain.User{
		ID:          id,
		Username:    username,
		DisplayName: "User " + username,
		Type:        domain.UserTypeUser,
		Groups:      []string{"g1", "g2"},
		State:       domain.UserActive,
		CreatedAt:   base,
		UpdatedAt:   base,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsersCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := testUser("01A", "alice")
	require.NoError(t, s.Users().Create(ctx, u))

	got, err := s.Users().GetByID(ctx, "01A")
	require.NoError(t, err)
	require.Equal(t, u, got)

	got, err = s.Users().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "01A", got.ID)
	require.Nil(t, got.LastLogin)
}

func TestUsersCreateWithoutGroups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u := testUser("01A", "alice")
	u.Groups = nil
	require.NoError(t, s.Users().Create(ctx, u))

	got, err := s.Users().GetByID(ctx, "01A")
	require.NoError(t, err)
	require.Empty(t, got.Groups)
}

func TestUsersDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Users().Create(ctx, testUser("01A", "alice")))

	err := s.Users().Create(ctx, testUser("01A", "bob"))
	require.ErrorIs(t, err, store.ErrDuplicateID)

	err = s.Users().Create(ctx, testUser("01B", "alice"))
	require.ErrorIs(t, err, store.ErrDuplicateUsername)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsersNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Users().GetByID(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Users().GetByUsername(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Users().UpdateLastLogin(ctx, "nope", base), store.ErrNotFound)
	require.ErrorIs(t, s.Users().Delete(ctx, "nope"), store.ErrNotFound)
}

func TestUsersUpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Users().Create(ctx, testUser("01A", "alice")))

	at := base.Add(time.Hour)
	require.NoError(t, s.Users().UpdateLastLogin(ctx, "01A", at))

	got, err := s.Users().GetByID(ctx, "01A")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	require.True(t, at.Equal(*got.LastLogin))
	require.True(t, at.Equal(got.UpdatedAt))
}

func testCredential(userID string, rotations int) domain.Credential {
	c := domain.Credential{
		UserID:       userID,
		PasswordHash: "hash-current",
		MFA:          domain.MFANone,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	for i := range rotations {
		c.History.Push(domain.PasswordHistoryEntry{
			Hash:      fmt.Sprintf("hash-%02d", i),
			ChangedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return c
}

func TestCredentialsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Users().Create(ctx, testUser("01A", "alice")))

	c := testCredential("01A", 13)
	c.MFA = domain.MFATOTP
	c.MFASecret = "JBSWY3DPEHPK3PXP"
	require.NoError(t, s.Credentials().Save(ctx, c))

	got, err := s.Credentials().Load(ctx, "01A")
	require.NoError(t, err)
	require.Equal(t, c.PasswordHash, got.PasswordHash)
	require.Equal(t, c.MFA, got.MFA)
	require.Equal(t, c.MFASecret, got.MFASecret)
	require.Equal(t, c.History.Entries(), got.History.Entries())
	require.Equal(t, domain.PasswordHistoryCap, got.History.Len())
	require.Equal(t, "hash-03", got.History.At(0).Hash)
	newest, ok := got.History.Newest()
	require.True(t, ok)
	require.Equal(t, "hash-12", newest.Hash)
}

func TestCredentialsSaveReplacesHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Users().Create(ctx, testUser("01A", "alice")))

	require.NoError(t, s.Credentials().Save(ctx, testCredential("01A", 5)))

	c := testCredential("01A", 2)
	c.PasswordHash = "hash-next"
	c.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.Credentials().Save(ctx, c))

	got, err := s.Credentials().Load(ctx, "01A")
	require.NoError(t, err)
	require.Equal(t, "hash-next", got.PasswordHash)
	require.Equal(t, 2, got.History.Len())
	require.True(t, base.Equal(got.CreatedAt))
	require.True(t, c.UpdatedAt.Equal(got.UpdatedAt))
}

func TestCredentialsSaveRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Users().Create(ctx, testUser("01A", "alice")))

	c := testCredential("01A", 0)
	c.MFA = domain.MFATOTP
	require.ErrorIs(t, s.Credentials().Save(ctx, c), domain.ErrInvalidCredential)
}

func TestCredentialsRequireUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.Error(t, s.Credentials().Save(ctx, testCredential("ghost", 0)))
}

func TestCredentialsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Credentials().Load(ctx, "01A")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.Credentials().Delete(ctx, "01A"), store.ErrNotFound)
}

func TestEnrollmentsPutReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Users().Create(ctx, testUser("01A", "alice")))

	_, err := s.Enrollments().Get(ctx, "01A")
	require.ErrorIs(t, err, store.ErrNotFound)

	first := domain.PendingMFA{UserID: "01A", Kind: domain.MFATOTP, Secret: "JBSWY3DPEHPK3PXP", CreatedAt: base}
	require.NoError(t, s.Enrollments().Put(ctx, first))

	second := first
	second.Secret = "KRSXG5CTMVRXEZLU"
	second.CreatedAt = base.Add(time.Minute)
	require.NoError(t, s.Enrollments().Put(ctx, second))

	got, err := s.Enrollments().Get(ctx, "01A")
	require.NoError(t, err)
	require.Equal(t, second, got)

	require.NoError(t, s.Enrollments().Delete(ctx, "01A"))
	require.ErrorIs(t, s.Enrollments().Delete(ctx, "01A"), store.ErrNotFound)
}

func TestEnrollmentsRequireUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.Error(t, s.Enrollments().Put(ctx, domain.PendingMFA{UserID: "ghost", Kind: domain.MFATOTP, Secret: "x", CreatedAt: base}))
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Users().Create(ctx, testUser("01A", "alice")))
	require.NoError(t, s.Credentials().Save(ctx, testCredential("01A", 3)))
	require.NoError(t, s.Enrollments().Put(ctx, domain.PendingMFA{UserID: "01A", Kind: domain.MFATOTP, Secret: "JBSWY3DPEHPK3PXP", CreatedAt: base}))

	require.NoError(t, s.Users().Delete(ctx, "01A"))

	_, err := s.Enrollments().Get(ctx, "01A")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Credentials().Load(ctx, "01A")
	require.ErrorIs(t, err, store.ErrNotFound)

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM password_history`).Scan(&n))
	require.Zero(t, n)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().Create(ctx, testUser("01A", "alice")))
		require.NoError(t, tx.Credentials().Save(ctx, testCredential("01A", 1)))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetByID(ctx, "01A")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, testUser("01A", "alice")); err != nil {
			return err
		}
		return tx.Credentials().Save(ctx, testCredential("01A", 1))
	})
	require.NoError(t, err)

	got, err := s.Credentials().Load(ctx, "01A")
	require.NoError(t, err)
	require.Equal(t, 1, got.History.Len())
}

func TestNestedTxUnsupported(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		return err
	})
	require.Error(t, err)
}

package domain

import (
	"errors"
	"time"
)

// PasswordHistoryCap is the number of retired password hashes remembered
// per user.
const PasswordHistoryCap = 10

// ErrInvalidCredential reports a Credential whose MFA fields disagree.
var ErrInvalidCredential = errors.New("domain: invalid credential")

// MFAKind names a second factor. It is an open string type so that values
// read from storage or requests can hold kinds this build does not
// implement; those are rejected by the verifier.
type MFAKind string

const (
	MFANone MFAKind = "none"
	MFATOTP MFAKind = "totp"
)

// Credential is the durable password and MFA record for one user.
//
// It is a plain value: copying a Credential copies its history, so the
// verifier can return a modified copy without touching the caller's.
type Credential struct {
	UserID       string
	PasswordHash string // argon2id PHC or bcrypt encoded, never plaintext
	History      PasswordHistory
	MFA          MFAKind
	MFASecret    string // base32, set iff MFA == MFATOTP
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAEnabled reports whether a second factor is configured.
func (c Credential) MFAEnabled() bool {
	return c.MFA != "" && c.MFA != MFANone
}

// Validate checks the record's internal consistency.
func (c Credential) Validate() error {
	switch {
	case c.UserID == "":
		return errors.Join(ErrInvalidCredential, errors.New("empty user id"))
	case c.PasswordHash == "":
		return errors.Join(ErrInvalidCredential, errors.New("empty password hash"))
	case c.MFA == MFATOTP && c.MFASecret == "":
		return errors.Join(ErrInvalidCredential, errors.New("totp enabled without secret"))
	case !c.MFAEnabled() && c.MFASecret != "":
		return errors.Join(ErrInvalidCredential, errors.New("secret present without mfa"))
	}
	return nil
}

// PendingMFA is an enrolled second factor that has not been confirmed
// with a valid code yet. It plays no part in login.
type PendingMFA struct {
	UserID    string
	Kind      MFAKind
	Secret    string
	CreatedAt time.Time
}

// Apply returns cred with the pending factor enabled as of at.
func (p PendingMFA) Apply(cred Credential, at time.Time) Credential {
	cred.MFA = p.Kind
	cred.MFASecret = p.Secret
	cred.UpdatedAt = at
	return cred
}

// PasswordHistoryEntry is a retired password hash and when it was retired.
type PasswordHistoryEntry struct {
	Hash      string
	ChangedAt time.Time
}

// PasswordHistory is a fixed capacity FIFO ring of retired password hashes.
// Pushing onto a full ring evicts the oldest entry. The zero value is an
// empty history.
type PasswordHistory struct {
	entries [PasswordHistoryCap]PasswordHistoryEntry
	start   int // index of the oldest entry
	n       int
}

// NewPasswordHistory builds a ring from entries ordered oldest first. When
// more than PasswordHistoryCap entries are given only the newest are kept.
func NewPasswordHistory(entries ...PasswordHistoryEntry) PasswordHistory {
	var h PasswordHistory
	for _, e := range entries {
		h.Push(e)
	}
	return h
}

// Push appends e as the newest entry and reports whether an old entry was
// evicted to make room.
func (h *PasswordHistory) Push(e PasswordHistoryEntry) (evicted bool) {
	if h.n < PasswordHistoryCap {
		h.entries[(h.start+h.n)%PasswordHistoryCap] = e
		h.n++
		return false
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % PasswordHistoryCap
	return true
}

// Len returns the number of entries held, never more than PasswordHistoryCap.
func (h PasswordHistory) Len() int { return h.n }

// At returns the i-th entry counting from the oldest. It panics when i is
// out of range, like a slice index.
func (h PasswordHistory) At(i int) PasswordHistoryEntry {
	if i < 0 || i >= h.n {
		panic("domain: password history index out of range")
	}
	return h.entries[(h.start+i)%PasswordHistoryCap]
}

// Newest returns the most recently retired entry.
func (h PasswordHistory) Newest() (PasswordHistoryEntry, bool) {
	if h.n == 0 {
		return PasswordHistoryEntry{}, false
	}
	return h.At(h.n - 1), true
}

// Entries returns a copy of the history ordered oldest first.
func (h PasswordHistory) Entries() []PasswordHistoryEntry {
	out := make([]PasswordHistoryEntry, h.n)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

package credential

import "time"

// PasswordOutcome classifies a password check.
type PasswordOutcome int

const (
	// PasswordFailed means the plaintext matched nothing.
	PasswordFailed PasswordOutcome = iota
	// PasswordSuccess means the plaintext matched the current hash.
	PasswordSuccess
	// PasswordFailedPrevious means the plaintext matched a retired hash.
	// It is still a failed authentication.
	PasswordFailedPrevious
)

func (o PasswordOutcome) String() string {
	switch o {
	case PasswordSuccess:
		return "success"
	case PasswordFailedPrevious:
		return "failed_previous"
	default:
		return "failed"
	}
}

// PasswordResult is the outcome of VerifyPassword. ChangedAt is only set
// for PasswordFailedPrevious and holds when that password was retired.
type PasswordResult struct {
	Outcome   PasswordOutcome
	ChangedAt time.Time
}

// OK reports whether the password authenticates the user.
func (r PasswordResult) OK() bool { return r.Outcome == PasswordSuccess }

// MFAResult classifies a second factor check.
type MFAResult int

const (
	// MFANotConfigured means the user has no second factor; callers skip
	// the MFA step.
	MFANotConfigured MFAResult = iota
	MFASuccess
	MFAFailed
)

func (r MFAResult) String() string {
	switch r {
	case MFASuccess:
		return "success"
	case MFAFailed:
		return "failed"
	default:
		return "not_configured"
	}
}

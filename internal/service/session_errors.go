package service

import (
	"errors"
	"fmt"
	"time"
)

// DenialReason is why the eligibility gate refused a start.
type DenialReason string

const (
	DenialOutsideWindow     DenialReason = "OUTSIDE_WINDOW"
	DenialBadAccessCode     DenialReason = "BAD_ACCESS_CODE"
	DenialAttemptsExhausted DenialReason = "ATTEMPTS_EXHAUSTED"
	DenialCooldownActive    DenialReason = "COOLDOWN_ACTIVE"
)

// Denial is an expected, recoverable refusal to start a session.
// It is returned to the caller verbatim and never logged as an error.
type Denial struct {
	Reason         DenialReason
	CooldownEndsAt *time.Time
}

func (d *Denial) Error() string {
	if d.CooldownEndsAt != nil {
		return fmt.Sprintf("start denied: %s until %s", d.Reason, d.CooldownEndsAt.Format(time.RFC3339))
	}
	return "start denied: " + string(d.Reason)
}

// State conflicts. Callers should refetch the current state.
var (
	ErrSessionExpired  = errors.New("session time limit has elapsed")
	ErrAlreadyTerminal = errors.New("session is already in a terminal state")
	ErrSessionNotFound = errors.New("session not found")
)

// Other request-level failures.
var (
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrNoQuestions        = errors.New("assessment has no questions")
	ErrNotTerminal        = errors.New("session is still in progress")
	ErrInvalidViolation   = errors.New("unknown violation kind")
)

// Integrity violations: possible tampering.
var (
	ErrQuestionNotInSession = errors.New("question is not part of this session")
	ErrNotSessionOwner      = errors.New("session belongs to another candidate")
)

// IntegrityError wraps an integrity violation with the context needed to investigate it.
// The request is rejected with no partial mutation.
type IntegrityError struct {
	Err          error
	SessionID    string
	AssessmentID string
	CandidateKey string
	Detail       map[string]string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on session %s: %v", e.SessionID, e.Err)
}

// Kind is the stable incident label of the violation.
func (e *IntegrityError) Kind() string {
	switch {
	case errors.Is(e.Err, ErrQuestionNotInSession):
		return "question_not_in_session"
	case errors.Is(e.Err, ErrNotSessionOwner):
		return "not_session_owner"
	default:
		return "unknown"
	}
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// IsDenial reports whether err is a gate denial and returns it.
func IsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// ErrTooManyConflicts is returned when concurrent writers kept winning the version race.
var ErrTooManyConflicts = errors.New("session is being modified concurrently, retry later")

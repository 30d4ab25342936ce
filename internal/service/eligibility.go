package service

import (
	"crypto/subtle"
	"time"

	"github.com/stemsi/exstem-assessment/internal/model"
)

// Decision is the outcome of the eligibility gate.
// Exactly one of Denial and Resume may be set; neither means a new session may start.
type Decision struct {
	Denial *Denial
	Resume *model.Session
}

// Allowed reports whether the candidate may proceed (new or resumed session).
func (d Decision) Allowed() bool {
	return d.Denial == nil
}

// Evaluate decides whether a candidate may start an attempt. history holds all of the
// candidate's sessions for the assessment. The first failing check wins.
func Evaluate(a *model.Assessment, history []model.Session, providedCode string, now time.Time) Decision {
	if !withinWindow(a, now) {
		return Decision{Denial: &Denial{Reason: DenialOutsideWindow}}
	}

	if a.AccessCodeRequired() && !accessCodeMatches(*a.AccessCode, providedCode) {
		return Decision{Denial: &Denial{Reason: DenialBadAccessCode}}
	}

	if a.MaxAttempts != nil && terminalAttempts(history) >= *a.MaxAttempts {
		return Decision{Denial: &Denial{Reason: DenialAttemptsExhausted}}
	}

	if ends := cooldownEndsAt(a, history, now); ends != nil {
		return Decision{Denial: &Denial{Reason: DenialCooldownActive, CooldownEndsAt: ends}}
	}

	for i := range history {
		if history[i].Status == model.SessionStatusInProgress {
			resume := history[i]
			return Decision{Resume: &resume}
		}
	}
	return Decision{}
}

// RetakeStatus summarises whether a candidate may take the assessment again.
type RetakeStatus struct {
	AttemptsUsed      int        `json:"attempts_used"`
	AttemptsRemaining *int       `json:"attempts_remaining"`
	CooldownEndsAt    *time.Time `json:"cooldown_ends_at,omitempty"`
	CanRetake         bool       `json:"can_retake"`
}

// Retake computes the retake status with the gate's window, attempt and cooldown rules.
func Retake(a *model.Assessment, history []model.Session, now time.Time) RetakeStatus {
	used := terminalAttempts(history)
	st := RetakeStatus{AttemptsUsed: used, CanRetake: withinWindow(a, now)}

	if a.MaxAttempts != nil {
		remaining := *a.MaxAttempts - used
		if remaining < 0 {
			remaining = 0
		}
		st.AttemptsRemaining = &remaining
		if remaining == 0 {
			st.CanRetake = false
		}
	}
	if ends := cooldownEndsAt(a, history, now); ends != nil {
		st.CooldownEndsAt = ends
		st.CanRetake = false
	}
	return st
}

func withinWindow(a *model.Assessment, now time.Time) bool {
	if a.StartsAt != nil && now.Before(*a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && now.After(*a.EndsAt) {
		return false
	}
	return true
}

func accessCodeMatches(expected, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func terminalAttempts(history []model.Session) int {
	n := 0
	for i := range history {
		if history[i].Status.IsTerminal() {
			n++
		}
	}
	return n
}

// cooldownEndsAt returns the end of an active cooldown, or nil when none applies.
func cooldownEndsAt(a *model.Assessment, history []model.Session, now time.Time) *time.Time {
	if a.Cooldown == nil || *a.Cooldown <= 0 {
		return nil
	}

	var last *time.Time
	for i := range history {
		s := &history[i]
		if !s.Status.IsTerminal() || s.CompletedAt == nil {
			continue
		}
		if last == nil || s.CompletedAt.After(*last) {
			last = s.CompletedAt
		}
	}
	if last == nil {
		return nil
	}

	ends := last.Add(*a.Cooldown)
	if ends.After(now) {
		return &ends
	}
	return nil
}

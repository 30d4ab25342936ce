package service

import (
	"time"

	"github.com/stemsi/exstem-assessment/internal/model"
)

// IsExpired reports whether an in-progress session has reached its time limit.
func IsExpired(s *model.Session, timeLimit time.Duration, now time.Time) bool {
	return s.Status == model.SessionStatusInProgress && !now.Before(s.CreatedAt.Add(timeLimit))
}

// NextState returns the status s must be in at now. It never mutates s.
// In-progress sessions past their deadline become timed_out; every other
// status is returned unchanged.
func NextState(s *model.Session, timeLimit time.Duration, now time.Time) model.SessionStatus {
	if IsExpired(s, timeLimit, now) {
		return model.SessionStatusTimedOut
	}
	return s.Status
}

// Remaining returns the time left before the deadline, never negative.
func Remaining(s *model.Session, timeLimit time.Duration, now time.Time) time.Duration {
	if s.Status != model.SessionStatusInProgress {
		return 0
	}
	left := s.CreatedAt.Add(timeLimit).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// terminalInstant is the completed_at recorded for a transition into status.
// Timeouts are stamped at the deadline, capped to now.
func terminalInstant(s *model.Session, status model.SessionStatus, timeLimit time.Duration, now time.Time) time.Time {
	if status == model.SessionStatusTimedOut {
		deadline := s.CreatedAt.Add(timeLimit)
		if deadline.Before(now) {
			return deadline
		}
	}
	if now.Before(s.CreatedAt) {
		return s.CreatedAt
	}
	return now
}

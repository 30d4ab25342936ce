package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// Reaper expires and grades in-progress sessions whose time limit has elapsed.
// It runs on read paths and from the admin API, never on a timer.
type Reaper struct {
	sessions *SessionService
}

// NewReaper creates a new Reaper.
func NewReaper(sessions *SessionService) *Reaper {
	return &Reaper{sessions: sessions}
}

// ReapExpired returns how many sessions this call moved to timed_out. Sessions
// already transitioned by a concurrent writer are skipped and not counted.
func (r *Reaper) ReapExpired(ctx context.Context, assessmentID *uuid.UUID) (int, error) {
	return r.sessions.reap(ctx, assessmentID)
}

func (s *SessionService) reap(ctx context.Context, assessmentID *uuid.UUID) (int, error) {
	stale, err := s.store.ListInProgress(ctx, assessmentID)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	rules := make(map[uuid.UUID]*model.Assessment)
	expired := 0

	for i := range stale {
		session := &stale[i]

		a, ok := rules[session.AssessmentID]
		if !ok {
			a, err = s.content.GetAssessment(ctx, session.AssessmentID)
			if errors.Is(err, ErrAssessmentNotFound) {
				s.log.Warn().Str("session_id", session.ID.String()).Msg("Skipping session of deleted assessment")
				continue
			}
			if err != nil {
				return expired, err
			}
			rules[session.AssessmentID] = a
		}

		if !IsExpired(session, a.TimeLimit, now) {
			continue
		}

		if _, err := s.finish(ctx, session, session.Clone(), a, model.SessionStatusTimedOut, now); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				s.log.Debug().Str("session_id", session.ID.String()).Msg("Session changed concurrently, skipping")
				continue
			}
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		ev := s.log.Info().Int("expired", expired)
		if assessmentID != nil {
			ev = ev.Str("assessment_id", assessmentID.String())
		}
		ev.Msg("Reaped stale sessions")
	}
	return expired, nil
}

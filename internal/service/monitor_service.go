package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/clock"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// IncidentCounter reports integrity incident counts per candidate key.
type IncidentCounter interface {
	CountByAssessment(ctx context.Context, assessmentID uuid.UUID) (map[string]int64, error)
}

// MonitorService builds live proctoring snapshots of an assessment.
type MonitorService struct {
	store           SessionStore
	content         ContentProvider
	incidents       IncidentCounter
	reaper          *Reaper
	clock           clock.Clock
	reviewThreshold int
	log             zerolog.Logger
}

// NewMonitorService creates a new MonitorService. incidents may be nil.
func NewMonitorService(store SessionStore, content ContentProvider, incidents IncidentCounter, reaper *Reaper, clk clock.Clock, reviewThreshold int, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		store:           store,
		content:         content,
		incidents:       incidents,
		reaper:          reaper,
		clock:           clk,
		reviewThreshold: model.ReviewThreshold(reviewThreshold),
		log:             log.With().Str("component", "monitor_service").Logger(),
	}
}

// MonitorEntry is one in-progress candidate on the monitor board.
type MonitorEntry struct {
	SessionID        uuid.UUID `json:"session_id"`
	CandidateKey     string    `json:"candidate_key"`
	StartedAt        time.Time `json:"started_at"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	AnsweredCount    int       `json:"answered_count"`
	QuestionCount    int       `json:"question_count"`
	ViolationCount   int       `json:"violation_count"`
	FlaggedForReview bool      `json:"flagged_for_review"`
	Incidents        int64     `json:"incidents"`
}

// MonitorSnapshot holds every in-progress session of an assessment.
type MonitorSnapshot struct {
	AssessmentID   uuid.UUID      `json:"assessment_id"`
	Active         []MonitorEntry `json:"active"`
	TotalIncidents int64          `json:"total_incidents"`
	Reaped         int            `json:"reaped"`
}

// Snapshot reaps stale sessions, then loads active sessions and incident
// counts concurrently. Incident counts are best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, assessmentID uuid.UUID) (*MonitorSnapshot, error) {
	a, err := s.content.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	reaped, err := s.reaper.ReapExpired(ctx, &assessmentID)
	if err != nil {
		return nil, fmt.Errorf("reap: %w", err)
	}

	var (
		sessionsErr error
		countsErr   error
		counts      map[string]int64
		wg          sync.WaitGroup
	)
	snapshot := &MonitorSnapshot{AssessmentID: assessmentID, Reaped: reaped, Active: []MonitorEntry{}}

	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions, err := s.store.ListInProgress(ctx, &assessmentID)
		if err != nil {
			sessionsErr = err
			return
		}
		now := s.clock.Now()
		for i := range sessions {
			sess := &sessions[i]
			snapshot.Active = append(snapshot.Active, MonitorEntry{
				SessionID:        sess.ID,
				CandidateKey:     sess.Candidate.Key(),
				StartedAt:        sess.CreatedAt,
				RemainingSeconds: int64(Remaining(sess, a.TimeLimit, now) / time.Second),
				AnsweredCount:    sess.AnsweredCount(),
				QuestionCount:    len(sess.QuestionIDs),
				ViolationCount:   sess.ViolationCount(),
				FlaggedForReview: sess.FlaggedForReview(s.reviewThreshold),
			})
		}
	}()

	if s.incidents != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts, countsErr = s.incidents.CountByAssessment(ctx, assessmentID)
		}()
	}

	wg.Wait()

	if sessionsErr != nil {
		return nil, fmt.Errorf("list active sessions: %w", sessionsErr)
	}
	if countsErr != nil {
		s.log.Warn().Err(countsErr).Str("assessment_id", assessmentID.String()).Msg("Incident counts unavailable")
	}
	for _, c := range counts {
		snapshot.TotalIncidents += c
	}
	for i := range snapshot.Active {
		snapshot.Active[i].Incidents = counts[snapshot.Active[i].CandidateKey]
	}
	return snapshot, nil
}

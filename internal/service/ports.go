package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// SessionStore is the persistence boundary owned by the engine.
// Implemented by repository.SessionRepository and repository.MemorySessionStore.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Update(ctx context.Context, s *model.Session) error
	SetCertificateURL(ctx context.Context, id uuid.UUID, url string) error
	ListByCandidate(ctx context.Context, assessmentID uuid.UUID, candidateKey string) ([]model.Session, error)
	ListInProgress(ctx context.Context, assessmentID *uuid.UUID) ([]model.Session, error)
	ListByStatus(ctx context.Context, assessmentID uuid.UUID, statuses ...model.SessionStatus) ([]model.Session, error)
	ListByAssessmentPaginated(ctx context.Context, assessmentID uuid.UUID, limit, offset int) ([]model.Session, int, error)
}

// ContentProvider is the read-only question bank boundary.
type ContentProvider interface {
	GetAssessment(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	GetAssessmentByShareCode(ctx context.Context, code string) (*model.Assessment, error)
	ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

// SessionEvent is a lifecycle notification for live monitors.
type SessionEvent struct {
	Type           string    `json:"type"`
	SessionID      uuid.UUID `json:"session_id"`
	AssessmentID   uuid.UUID `json:"assessment_id"`
	CandidateKey   string    `json:"candidate_key"`
	Status         string    `json:"status"`
	AnsweredCount  int       `json:"answered_count"`
	ViolationCount int       `json:"violation_count"`
	Score          *int      `json:"score,omitempty"`
}

// Session event types.
const (
	EventSessionStarted   = "session_started"
	EventAnswerRecorded   = "answer_recorded"
	EventViolation        = "violation"
	EventSessionCompleted = "session_completed"
	EventSessionTimedOut  = "session_timed_out"
	EventSessionAbandoned = "session_abandoned"
)

// EventSink receives side-effect requests from the lifecycle controller.
// Failures are logged by the caller and never roll back a transition.
type EventSink interface {
	PublishSessionEvent(ctx context.Context, ev SessionEvent) error
	RequestCertificate(ctx context.Context, sessionID uuid.UUID) error
	ReportIntegrityIncident(ctx context.Context, incident *IntegrityError) error
}

type noopSink struct{}

func (noopSink) PublishSessionEvent(context.Context, SessionEvent) error        { return nil }
func (noopSink) RequestCertificate(context.Context, uuid.UUID) error            { return nil }
func (noopSink) ReportIntegrityIncident(context.Context, *IntegrityError) error { return nil }

func sessionEvent(eventType string, s *model.Session) SessionEvent {
	return SessionEvent{
		Type:           eventType,
		SessionID:      s.ID,
		AssessmentID:   s.AssessmentID,
		CandidateKey:   s.Candidate.Key(),
		Status:         string(s.Status),
		AnsweredCount:  s.AnsweredCount(),
		ViolationCount: s.ViolationCount(),
		Score:          s.Score,
	}
}

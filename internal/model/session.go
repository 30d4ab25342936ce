package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates assessment session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusTimedOut   SessionStatus = "timed_out"
	SessionStatusAbandoned  SessionStatus = "abandoned"
)

// IsTerminal reports whether no further mutation is possible.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusTimedOut, SessionStatusAbandoned:
		return true
	default:
		return false
	}
}

// CountsForAnalytics reports whether a session with this status takes part
// in cohort statistics. Abandoned sessions are excluded.
func (s SessionStatus) CountsForAnalytics() bool {
	return s == SessionStatusCompleted || s == SessionStatusTimedOut
}

// ViolationKind is a proctoring event reported by the client.
type ViolationKind string

const (
	ViolationLeft     ViolationKind = "left"
	ViolationReturned ViolationKind = "returned"
)

// Valid reports whether k is a known violation kind.
func (k ViolationKind) Valid() bool {
	return k == ViolationLeft || k == ViolationReturned
}

// Candidate identifies the exam-taker. Exactly one of UserID and
// ContactFingerprint is set; anonymous public attempts use the fingerprint.
type Candidate struct {
	UserID             *string `json:"user_id,omitempty"`
	ContactFingerprint *string `json:"contact_fingerprint,omitempty"`
}

// UserCandidate builds an authenticated candidate identity.
func UserCandidate(userID string) Candidate {
	return Candidate{UserID: &userID}
}

// ContactCandidate builds an anonymous candidate identity from a contact fingerprint.
func ContactCandidate(fingerprint string) Candidate {
	return Candidate{ContactFingerprint: &fingerprint}
}

// Key returns the opaque key used to group a candidate's attempts.
func (c Candidate) Key() string {
	switch {
	case c.UserID != nil:
		return "user:" + *c.UserID
	case c.ContactFingerprint != nil:
		return "contact:" + *c.ContactFingerprint
	default:
		return ""
	}
}

// Answer is the candidate's selection for one question of the sequence.
type Answer struct {
	SelectedIndex *int       `json:"selected_index"`
	Correct       *bool      `json:"correct,omitempty"`
	AnsweredAt    *time.Time `json:"answered_at,omitempty"`
}

// Answered reports whether an option is selected.
func (a *Answer) Answered() bool {
	return a != nil && a.SelectedIndex != nil
}

// Violation is one entry of the append-only proctoring log.
type Violation struct {
	At   time.Time     `json:"at"`
	Kind ViolationKind `json:"kind"`
}

// Session is one candidate's timed attempt at an assessment.
type Session struct {
	ID             uuid.UUID               `json:"id"`
	AssessmentID   uuid.UUID               `json:"assessment_id"`
	Candidate      Candidate               `json:"candidate"`
	Status         SessionStatus           `json:"status"`
	CreatedAt      time.Time               `json:"created_at"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	QuestionIDs    []uuid.UUID             `json:"question_ids"`
	Answers        map[uuid.UUID]*Answer   `json:"answers"`
	Violations     []Violation             `json:"violations"`
	QuestionViews  map[uuid.UUID]time.Time `json:"question_views,omitempty"`
	Score          *int                    `json:"score,omitempty"`
	Passed         *bool                   `json:"passed,omitempty"`
	CertificateURL *string                 `json:"certificate_url,omitempty"`
	AbandonReason  *string                 `json:"abandon_reason,omitempty"`
	Version        int64                   `json:"version"`
}

// ViolationCount is derived from the log: the number of "left" entries.
func (s *Session) ViolationCount() int {
	n := 0
	for _, v := range s.Violations {
		if v.Kind == ViolationLeft {
			n++
		}
	}
	return n
}

// DefaultReviewViolationThreshold applies when no positive threshold is configured.
const DefaultReviewViolationThreshold = 3

// ReviewThreshold returns n, or the default when n is not positive.
func ReviewThreshold(n int) int {
	if n <= 0 {
		return DefaultReviewViolationThreshold
	}
	return n
}

// FlaggedForReview reports whether the session reached the review threshold.
// A non-positive threshold falls back to DefaultReviewViolationThreshold.
func (s *Session) FlaggedForReview(threshold int) bool {
	return s.ViolationCount() >= ReviewThreshold(threshold)
}

// HasQuestion reports whether q belongs to the fixed question sequence.
func (s *Session) HasQuestion(q uuid.UUID) bool {
	for _, id := range s.QuestionIDs {
		if id == q {
			return true
		}
	}
	return false
}

// AnsweredCount returns how many questions have a selection.
func (s *Session) AnsweredCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.Answered() {
			n++
		}
	}
	return n
}

// IsGraded reports whether the grading outcome has been recorded.
func (s *Session) IsGraded() bool {
	return s.Score != nil && s.Passed != nil
}

// Clone returns a deep copy so state transitions never alias the stored value.
func (s *Session) Clone() *Session {
	c := *s
	c.Candidate = Candidate{
		UserID:             clonePtr(s.Candidate.UserID),
		ContactFingerprint: clonePtr(s.Candidate.ContactFingerprint),
	}
	c.CompletedAt = clonePtr(s.CompletedAt)
	c.Score = clonePtr(s.Score)
	c.Passed = clonePtr(s.Passed)
	c.CertificateURL = clonePtr(s.CertificateURL)
	c.AbandonReason = clonePtr(s.AbandonReason)

	c.QuestionIDs = append([]uuid.UUID(nil), s.QuestionIDs...)
	c.Violations = append([]Violation(nil), s.Violations...)

	c.Answers = make(map[uuid.UUID]*Answer, len(s.Answers))
	for k, a := range s.Answers {
		if a == nil {
			c.Answers[k] = &Answer{}
			continue
		}
		c.Answers[k] = &Answer{
			SelectedIndex: clonePtr(a.SelectedIndex),
			Correct:       clonePtr(a.Correct),
			AnsweredAt:    clonePtr(a.AnsweredAt),
		}
	}

	if s.QuestionViews != nil {
		c.QuestionViews = make(map[uuid.UUID]time.Time, len(s.QuestionViews))
		for k, v := range s.QuestionViews {
			c.QuestionViews[k] = v
		}
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// MemorySessionStore is an in-process session store with the same
// uniqueness and versioning rules as SessionRepository. It backs the
// "memory" store driver and the service tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.Session
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[uuid.UUID]*model.Session)}
}

// Create inserts s unless the candidate already has an in-progress session.
func (m *MemorySessionStore) Create(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := s.Candidate.Key()
	for _, existing := range m.sessions {
		if existing.AssessmentID == s.AssessmentID &&
			existing.Candidate.Key() == key &&
			existing.Status == model.SessionStatusInProgress {
			return ErrActiveSessionExists
		}
	}

	s.Version = 1
	m.sessions[s.ID] = s.Clone()
	return nil
}

// Get returns a copy of the stored session.
func (m *MemorySessionStore) Get(_ context.Context, id uuid.UUID) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Update replaces the stored session when versions match.
func (m *MemorySessionStore) Update(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[s.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if stored.Version != s.Version {
		return ErrVersionConflict
	}

	next := s.Clone()
	next.Version = s.Version + 1
	// Identity, sequence and certificate columns are not writable through Update.
	next.AssessmentID = stored.AssessmentID
	next.Candidate = stored.Candidate
	next.CreatedAt = stored.CreatedAt
	next.QuestionIDs = stored.QuestionIDs
	next.CertificateURL = stored.CertificateURL

	m.sessions[s.ID] = next
	s.Version = next.Version
	return nil
}

// SetCertificateURL stores the certificate link of a passing terminal session.
func (m *MemorySessionStore) SetCertificateURL(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.Status.CountsForAnalytics() || s.Passed == nil || !*s.Passed {
		return ErrSessionNotFound
	}
	s.CertificateURL = &url
	s.Version++
	return nil
}

// ListByCandidate returns a candidate's attempts oldest first.
func (m *MemorySessionStore) ListByCandidate(_ context.Context, assessmentID uuid.UUID, candidateKey string) ([]model.Session, error) {
	return m.filter(func(s *model.Session) bool {
		return s.AssessmentID == assessmentID && s.Candidate.Key() == candidateKey
	}), nil
}

// ListInProgress returns in-progress sessions, optionally scoped to one assessment.
func (m *MemorySessionStore) ListInProgress(_ context.Context, assessmentID *uuid.UUID) ([]model.Session, error) {
	return m.filter(func(s *model.Session) bool {
		if s.Status != model.SessionStatusInProgress {
			return false
		}
		return assessmentID == nil || s.AssessmentID == *assessmentID
	}), nil
}

// ListByStatus returns an assessment's sessions whose status is one of statuses.
func (m *MemorySessionStore) ListByStatus(_ context.Context, assessmentID uuid.UUID, statuses ...model.SessionStatus) ([]model.Session, error) {
	return m.filter(func(s *model.Session) bool {
		if s.AssessmentID != assessmentID {
			return false
		}
		for _, st := range statuses {
			if s.Status == st {
				return true
			}
		}
		return false
	}), nil
}

// ListByAssessmentPaginated returns one page of an assessment's sessions, newest first.
func (m *MemorySessionStore) ListByAssessmentPaginated(_ context.Context, assessmentID uuid.UUID, limit, offset int) ([]model.Session, int, error) {
	all := m.filter(func(s *model.Session) bool { return s.AssessmentID == assessmentID })
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []model.Session{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemorySessionStore) filter(keep func(s *model.Session) bool) []model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Session
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, *s.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

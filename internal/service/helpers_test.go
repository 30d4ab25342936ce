package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/clock"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeContent struct {
	mu          sync.Mutex
	assessments map[uuid.UUID]*model.Assessment
	questions   map[uuid.UUID][]model.Question
	err         error
}

func newFakeContent() *fakeContent {
	return &fakeContent{
		assessments: make(map[uuid.UUID]*model.Assessment),
		questions:   make(map[uuid.UUID][]model.Question),
	}
}

func (f *fakeContent) put(a *model.Assessment, questions []model.Question) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assessments[a.ID] = a
	f.questions[a.ID] = questions
}

func (f *fakeContent) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeContent) GetAssessment(_ context.Context, id uuid.UUID) (*model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assessments[id]
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeContent) GetAssessmentByShareCode(_ context.Context, code string) (*model.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assessments {
		if a.ShareCode != nil && *a.ShareCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAssessmentNotFound
}

func (f *fakeContent) ListQuestions(_ context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]model.Question(nil), f.questions[assessmentID]...), nil
}

type recordingSink struct {
	mu           sync.Mutex
	events       []SessionEvent
	certificates []uuid.UUID
	incidents    []*IntegrityError
}

func (r *recordingSink) PublishSessionEvent(_ context.Context, ev SessionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) RequestCertificate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.certificates = append(r.certificates, id)
	return nil
}

func (r *recordingSink) ReportIntegrityIncident(_ context.Context, ie *IntegrityError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents = append(r.incidents, ie)
	return nil
}

func (r *recordingSink) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

type fixture struct {
	clock      *clock.Fake
	store      *repository.MemorySessionStore
	content    *fakeContent
	sink       *recordingSink
	svc        *SessionService
	reaper     *Reaper
	assessment *model.Assessment
	questions  []model.Question
}

// newFixture builds an assessment of n questions: 30 minute limit, pass at 70.
func newFixture(t *testing.T, n int, configure ...func(*model.Assessment)) *fixture {
	t.Helper()

	a := &model.Assessment{
		ID:            uuid.New(),
		Title:         "Algebra I",
		TimeLimit:     30 * time.Minute,
		PassThreshold: 70,
		QuestionCount: n,
	}
	for _, fn := range configure {
		fn(a)
	}

	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{
			ID:           uuid.New(),
			AssessmentID: a.ID,
			Prompt:       fmt.Sprintf("Question %d", i+1),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: i % 4,
			Position:     i + 1,
		}
	}

	f := &fixture{
		clock:      clock.NewFake(t0),
		store:      repository.NewMemorySessionStore(),
		content:    newFakeContent(),
		sink:       &recordingSink{},
		assessment: a,
		questions:  questions,
	}
	f.content.put(a, questions)
	f.svc = NewSessionService(f.store, f.content, f.clock, f.sink,
		SessionOptions{ReviewViolationThreshold: 3, MaxRetries: 5}, zerolog.Nop())
	f.reaper = NewReaper(f.svc)
	return f
}

func (f *fixture) start(t *testing.T, cand model.Candidate) *model.Session {
	t.Helper()
	res, err := f.svc.Start(context.Background(), f.assessment.ID, cand, "")
	require.NoError(t, err)
	return res.Session
}

// answer selects the right option when correct is true, a wrong one otherwise.
func (f *fixture) answer(t *testing.T, s *model.Session, cand model.Candidate, q model.Question, correct bool) {
	t.Helper()
	choice := q.CorrectIndex
	if !correct {
		choice = (q.CorrectIndex + 1) % len(q.Options)
	}
	_, err := f.svc.RecordAnswer(context.Background(), s.ID, &cand, q.ID, &choice)
	require.NoError(t, err)
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) *model.Session {
	t.Helper()
	s, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func intPtr(v int) *int { return &v }

func durPtr(d time.Duration) *time.Duration { return &d }

func strPtr(s string) *string { return &s }

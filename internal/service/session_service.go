package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/clock"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// SessionOptions tunes the lifecycle controller.
type SessionOptions struct {
	// ReviewViolationThreshold flags sessions with at least this many "left" events.
	ReviewViolationThreshold int
	// MaxRetries bounds reload-and-reapply rounds after a version conflict.
	MaxRetries int
}

// SessionService is the session lifecycle controller. Every operation first
// applies the expiry check, then mutates the store under optimistic versioning.
type SessionService struct {
	store   SessionStore
	content ContentProvider
	clock   clock.Clock
	events  EventSink
	opts    SessionOptions
	log     zerolog.Logger
}

// NewSessionService creates a new SessionService. A nil sink discards events.
func NewSessionService(
	store SessionStore,
	content ContentProvider,
	clk clock.Clock,
	events EventSink,
	opts SessionOptions,
	log zerolog.Logger,
) *SessionService {
	if events == nil {
		events = noopSink{}
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	opts.ReviewViolationThreshold = model.ReviewThreshold(opts.ReviewViolationThreshold)
	return &SessionService{
		store:   store,
		content: content,
		clock:   clk,
		events:  events,
		opts:    opts,
		log:     log.With().Str("component", "session_service").Logger(),
	}
}

// StartResult is the session a start request resolved to.
type StartResult struct {
	Session *model.Session
	Resumed bool
}

// SessionState is the candidate's live view of a session.
type SessionState struct {
	SessionID        uuid.UUID           `json:"session_id"`
	AssessmentID     uuid.UUID           `json:"assessment_id"`
	Status           model.SessionStatus `json:"status"`
	StartedAt        time.Time           `json:"started_at"`
	Deadline         time.Time           `json:"deadline"`
	RemainingSeconds int64               `json:"remaining_seconds"`
	Answers          map[uuid.UUID]*int  `json:"answers"`
	AnsweredCount    int                 `json:"answered_count"`
	PercentComplete  int                 `json:"percent_complete"`
	ViolationCount   int                 `json:"violation_count"`
	FlaggedForReview bool                `json:"flagged_for_review"`
}

// ReviewItem is one graded question shown after completion when review is allowed.
type ReviewItem struct {
	Position      int       `json:"position"`
	QuestionID    uuid.UUID `json:"question_id"`
	Prompt        string    `json:"prompt,omitempty"`
	Options       []string  `json:"options,omitempty"`
	SelectedIndex *int      `json:"selected_index"`
	CorrectIndex  *int      `json:"correct_index,omitempty"`
	Correct       *bool     `json:"correct,omitempty"`
	Deleted       bool      `json:"deleted,omitempty"`
}

// SessionResult is the candidate's view of a terminal session.
type SessionResult struct {
	SessionID        uuid.UUID           `json:"session_id"`
	AssessmentID     uuid.UUID           `json:"assessment_id"`
	Status           model.SessionStatus `json:"status"`
	StartedAt        time.Time           `json:"started_at"`
	CompletedAt      *time.Time          `json:"completed_at"`
	AnsweredCount    int                 `json:"answered_count"`
	ViolationCount   int                 `json:"violation_count"`
	FlaggedForReview bool                `json:"flagged_for_review"`
	ResultsVisible   bool                `json:"results_visible"`
	Score            *int                `json:"score,omitempty"`
	Passed           *bool               `json:"passed,omitempty"`
	Percentile       *int                `json:"percentile,omitempty"`
	Rank             *int                `json:"rank,omitempty"`
	CohortSize       *int                `json:"cohort_size,omitempty"`
	CertificateURL   *string             `json:"certificate_url,omitempty"`
	Retake           RetakeStatus        `json:"retake"`
	Review           []ReviewItem        `json:"review,omitempty"`
}

// errNoChange tells mutate that the operation left the session untouched.
var errNoChange = errors.New("no change")

// mutation edits next in place. A non-empty status asks for a graded terminal transition.
type mutation func(next *model.Session, a *model.Assessment, now time.Time) (model.SessionStatus, error)

// terminalPolicy maps an already-terminal status to the error the operation reports.
// A nil policy accepts terminal sessions.
type terminalPolicy func(model.SessionStatus) error

func rejectExpired(st model.SessionStatus) error {
	if st == model.SessionStatusTimedOut {
		return ErrSessionExpired
	}
	return ErrAlreadyTerminal
}

func rejectTerminal(model.SessionStatus) error {
	return ErrAlreadyTerminal
}

func readOnly(*model.Session, *model.Assessment, time.Time) (model.SessionStatus, error) {
	return "", errNoChange
}

// CanStart evaluates the eligibility gate for a candidate without side effects
// beyond expiring their own stale attempts.
func (s *SessionService) CanStart(ctx context.Context, assessmentID uuid.UUID, cand model.Candidate, accessCode string) (Decision, *model.Assessment, error) {
	a, err := s.content.GetAssessment(ctx, assessmentID)
	if err != nil {
		return Decision{}, nil, err
	}
	history, err := s.candidateHistory(ctx, a, cand)
	if err != nil {
		return Decision{}, nil, err
	}
	return Evaluate(a, history, accessCode, s.clock.Now()), a, nil
}

// Start opens a new attempt or resumes the candidate's in-progress one.
func (s *SessionService) Start(ctx context.Context, assessmentID uuid.UUID, cand model.Candidate, accessCode string) (*StartResult, error) {
	decision, a, err := s.CanStart(ctx, assessmentID, cand, accessCode)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, a, cand, decision)
}

// StartByShareCode is Start keyed by a public share code.
func (s *SessionService) StartByShareCode(ctx context.Context, shareCode string, cand model.Candidate, accessCode string) (*StartResult, *model.Assessment, error) {
	a, err := s.content.GetAssessmentByShareCode(ctx, shareCode)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.candidateHistory(ctx, a, cand)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.start(ctx, a, cand, Evaluate(a, history, accessCode, s.clock.Now()))
	if err != nil {
		return nil, nil, err
	}
	return res, a, nil
}

func (s *SessionService) start(ctx context.Context, a *model.Assessment, cand model.Candidate, decision Decision) (*StartResult, error) {
	if decision.Denial != nil {
		s.log.Debug().
			Str("assessment_id", a.ID.String()).
			Str("candidate", cand.Key()).
			Str("reason", string(decision.Denial.Reason)).
			Msg("Start denied")
		return nil, decision.Denial
	}
	if decision.Resume != nil {
		return &StartResult{Session: decision.Resume, Resumed: true}, nil
	}

	questions, err := s.content.ListQuestions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	id := uuid.New()
	sequence := buildSequence(id, a, questions)
	answers := make(map[uuid.UUID]*model.Answer, len(sequence))
	for _, qid := range sequence {
		answers[qid] = &model.Answer{}
	}

	session := &model.Session{
		ID:            id,
		AssessmentID:  a.ID,
		Candidate:     cand,
		Status:        model.SessionStatusInProgress,
		CreatedAt:     s.clock.Now(),
		QuestionIDs:   sequence,
		Answers:       answers,
		Violations:    []model.Violation{},
		QuestionViews: map[uuid.UUID]time.Time{},
	}

	if err := s.store.Create(ctx, session); err != nil {
		if !errors.Is(err, repository.ErrActiveSessionExists) {
			return nil, fmt.Errorf("create session: %w", err)
		}
		// A concurrent start won; resolve to its session.
		existing, fetchErr := s.findInProgress(ctx, a.ID, cand)
		if fetchErr != nil {
			return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
		}
		return &StartResult{Session: existing, Resumed: true}, nil
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("assessment_id", a.ID.String()).
		Int("questions", len(sequence)).
		Msg("Session started")
	s.publish(ctx, EventSessionStarted, session)
	return &StartResult{Session: session}, nil
}

// GetState returns the live state, persisting a timeout first when due.
func (s *SessionService) GetState(ctx context.Context, id uuid.UUID, owner *model.Candidate) (*SessionState, error) {
	session, a, err := s.mutate(ctx, id, owner, nil, readOnly)
	if err != nil {
		return nil, err
	}
	questions, err := s.content.ListQuestions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return s.buildState(session, a, questionIndex(questions)), nil
}

// RecordAnswer stores or clears the candidate's selection for one question.
func (s *SessionService) RecordAnswer(ctx context.Context, id uuid.UUID, owner *model.Candidate, questionID uuid.UUID, selected *int) (*model.Session, error) {
	session, _, err := s.mutate(ctx, id, owner, rejectExpired, func(next *model.Session, _ *model.Assessment, now time.Time) (model.SessionStatus, error) {
		if !next.HasQuestion(questionID) {
			return "", &IntegrityError{
				Err:          ErrQuestionNotInSession,
				SessionID:    next.ID.String(),
				AssessmentID: next.AssessmentID.String(),
				CandidateKey: next.Candidate.Key(),
				Detail:       map[string]string{"question_id": questionID.String()},
			}
		}
		if selected == nil {
			next.Answers[questionID] = &model.Answer{}
			return "", nil
		}
		choice, at := *selected, now
		next.Answers[questionID] = &model.Answer{SelectedIndex: &choice, AnsweredAt: &at}
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventAnswerRecorded, session)
	return session, nil
}

// RecordViolation appends a proctoring event to the session log.
func (s *SessionService) RecordViolation(ctx context.Context, id uuid.UUID, owner *model.Candidate, kind model.ViolationKind) (*model.Session, error) {
	if !kind.Valid() {
		return nil, ErrInvalidViolation
	}
	session, _, err := s.mutate(ctx, id, owner, rejectExpired, func(next *model.Session, _ *model.Assessment, now time.Time) (model.SessionStatus, error) {
		next.Violations = append(next.Violations, model.Violation{At: now, Kind: kind})
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	if kind == model.ViolationLeft {
		s.publish(ctx, EventViolation, session)
	}
	return session, nil
}

// RecordView stores the first instant a question was shown. Later views are ignored.
func (s *SessionService) RecordView(ctx context.Context, id uuid.UUID, owner *model.Candidate, questionID uuid.UUID) (*model.Session, error) {
	session, _, err := s.mutate(ctx, id, owner, rejectExpired, func(next *model.Session, _ *model.Assessment, now time.Time) (model.SessionStatus, error) {
		if !next.HasQuestion(questionID) {
			return "", &IntegrityError{
				Err:          ErrQuestionNotInSession,
				SessionID:    next.ID.String(),
				AssessmentID: next.AssessmentID.String(),
				CandidateKey: next.Candidate.Key(),
				Detail:       map[string]string{"question_id": questionID.String(), "action": "view"},
			}
		}
		if _, seen := next.QuestionViews[questionID]; seen {
			return "", errNoChange
		}
		if next.QuestionViews == nil {
			next.QuestionViews = make(map[uuid.UUID]time.Time)
		}
		next.QuestionViews[questionID] = now
		return "", nil
	})
	return session, err
}

// Submit completes the session and grades it synchronously.
func (s *SessionService) Submit(ctx context.Context, id uuid.UUID, owner *model.Candidate) (*model.Session, error) {
	session, _, err := s.mutate(ctx, id, owner, rejectTerminal, func(*model.Session, *model.Assessment, time.Time) (model.SessionStatus, error) {
		return model.SessionStatusCompleted, nil
	})
	return session, err
}

// Abandon terminates an in-progress session on behalf of an administrator.
func (s *SessionService) Abandon(ctx context.Context, id uuid.UUID, reason string) (*model.Session, error) {
	session, _, err := s.mutate(ctx, id, nil, rejectTerminal, func(next *model.Session, _ *model.Assessment, _ time.Time) (model.SessionStatus, error) {
		r := reason
		next.AbandonReason = &r
		return model.SessionStatusAbandoned, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", id.String()).Str("reason", reason).Msg("Session abandoned")
	return session, nil
}

// Paper returns the question sheet in the session's fixed order, without answer keys.
// After a terminal state it stays available only when review is allowed.
func (s *SessionService) Paper(ctx context.Context, id uuid.UUID, owner *model.Candidate) (*model.Paper, error) {
	session, a, err := s.mutate(ctx, id, owner, nil, readOnly)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() && !a.AllowReview {
		return nil, ErrAlreadyTerminal
	}

	questions, err := s.content.ListQuestions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	idx := questionIndex(questions)

	paper := &model.Paper{SessionID: session.ID, Title: a.Title, Questions: make([]model.QuestionForCandidate, 0, len(session.QuestionIDs))}
	for pos, qid := range session.QuestionIDs {
		q, ok := idx[qid]
		if !ok {
			continue
		}
		paper.Questions = append(paper.Questions, q.ForCandidate(pos))
	}
	return paper, nil
}

// Result returns the outcome of a terminal session, with cohort standing and retake status.
func (s *SessionService) Result(ctx context.Context, id uuid.UUID, owner *model.Candidate) (*SessionResult, error) {
	session, a, err := s.mutate(ctx, id, owner, nil, readOnly)
	if err != nil {
		return nil, err
	}
	if !session.Status.IsTerminal() {
		return nil, ErrNotTerminal
	}

	res := &SessionResult{
		SessionID:        session.ID,
		AssessmentID:     session.AssessmentID,
		Status:           session.Status,
		StartedAt:        session.CreatedAt,
		CompletedAt:      session.CompletedAt,
		AnsweredCount:    session.AnsweredCount(),
		ViolationCount:   session.ViolationCount(),
		FlaggedForReview: session.FlaggedForReview(s.opts.ReviewViolationThreshold),
		ResultsVisible:   a.ResultsVisible,
		CertificateURL:   session.CertificateURL,
	}

	history, err := s.store.ListByCandidate(ctx, a.ID, session.Candidate.Key())
	if err != nil {
		return nil, fmt.Errorf("list candidate sessions: %w", err)
	}
	res.Retake = Retake(a, history, s.clock.Now())

	if a.ResultsVisible {
		res.Score, res.Passed = session.Score, session.Passed
		if session.Status.CountsForAnalytics() && session.IsGraded() {
			if _, err := s.reap(ctx, &a.ID); err != nil {
				s.log.Warn().Err(err).Str("assessment_id", a.ID.String()).Msg("Reap before ranking failed")
			}
			cohort, err := s.store.ListByStatus(ctx, a.ID, model.SessionStatusCompleted, model.SessionStatusTimedOut)
			if err != nil {
				return nil, fmt.Errorf("list cohort: %w", err)
			}
			standing := PercentileRank(*session.Score, scoresOf(cohort))
			res.Percentile, res.Rank, res.CohortSize = &standing.Percentile, &standing.Rank, &standing.Total
		}
	}

	if a.AllowReview {
		questions, err := s.content.ListQuestions(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		res.Review = buildReview(session, questionIndex(questions), a.ResultsVisible)
	}
	return res, nil
}

// mutate loads the session, applies the expiry check, runs fn on a copy and
// persists it. Version conflicts reload and re-apply up to MaxRetries times.
func (s *SessionService) mutate(ctx context.Context, id uuid.UUID, owner *model.Candidate, onTerminal terminalPolicy, fn mutation) (*model.Session, *model.Assessment, error) {
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		current, err := s.load(ctx, id, owner)
		if err != nil {
			return nil, nil, err
		}
		a, err := s.content.GetAssessment(ctx, current.AssessmentID)
		if err != nil {
			return nil, nil, err
		}
		now := s.clock.Now()

		if NextState(current, a.TimeLimit, now) != current.Status {
			expired, err := s.finish(ctx, current, current.Clone(), a, model.SessionStatusTimedOut, now)
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			if onTerminal != nil {
				return expired, a, onTerminal(expired.Status)
			}
			return expired, a, nil
		}

		if current.Status.IsTerminal() {
			if onTerminal != nil {
				return current, a, onTerminal(current.Status)
			}
			return current, a, nil
		}

		next := current.Clone()
		terminal, err := fn(next, a, now)
		if errors.Is(err, errNoChange) {
			return current, a, nil
		}
		if err != nil {
			return nil, nil, s.reject(ctx, err)
		}

		if terminal != "" {
			done, err := s.finish(ctx, current, next, a, terminal, now)
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			return done, a, nil
		}

		if err := s.store.Update(ctx, next); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, nil, fmt.Errorf("update session: %w", err)
		}
		return next, a, nil
	}

	s.log.Warn().Str("session_id", id.String()).Int("retries", s.opts.MaxRetries).Msg("Gave up after repeated version conflicts")
	return nil, nil, ErrTooManyConflicts
}

// finish grades next, a copy of current carrying the operation's edits, and
// persists its transition into status.
func (s *SessionService) finish(ctx context.Context, current, next *model.Session, a *model.Assessment, status model.SessionStatus, now time.Time) (*model.Session, error) {
	questions, err := s.content.ListQuestions(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	res := Grade(next, questionIndex(questions), a.PassThreshold)
	if len(res.Missing) > 0 {
		ids := make([]string, len(res.Missing))
		for i, q := range res.Missing {
			ids[i] = q.String()
		}
		s.log.Warn().
			Str("session_id", next.ID.String()).
			Strs("missing_questions", ids).
			Msg("Grading anomaly: questions no longer exist, scored incorrect")
	}

	if err := applyGrade(next, status, res, terminalInstant(current, status, a.TimeLimit, now)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, next); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("persist %s session: %w", status, err)
	}

	s.log.Info().
		Str("session_id", next.ID.String()).
		Str("status", string(status)).
		Int("score", res.Score).
		Bool("passed", res.Passed).
		Msg("Session graded")
	s.afterTerminal(ctx, next)
	return next, nil
}

func (s *SessionService) afterTerminal(ctx context.Context, session *model.Session) {
	switch session.Status {
	case model.SessionStatusCompleted:
		s.publish(ctx, EventSessionCompleted, session)
	case model.SessionStatusTimedOut:
		s.publish(ctx, EventSessionTimedOut, session)
	case model.SessionStatusAbandoned:
		s.publish(ctx, EventSessionAbandoned, session)
	}

	if session.Status.CountsForAnalytics() && session.Passed != nil && *session.Passed {
		if err := s.events.RequestCertificate(ctx, session.ID); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID.String()).Msg("Failed to enqueue certificate request")
		}
	}
}

func (s *SessionService) publish(ctx context.Context, eventType string, session *model.Session) {
	if err := s.events.PublishSessionEvent(ctx, sessionEvent(eventType, session)); err != nil {
		s.log.Warn().Err(err).Str("session_id", session.ID.String()).Str("event", eventType).Msg("Failed to publish session event")
	}
}

// load fetches a session and enforces ownership when owner is set.
func (s *SessionService) load(ctx context.Context, id uuid.UUID, owner *model.Candidate) (*model.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if owner != nil && session.Candidate.Key() != owner.Key() {
		return nil, s.reject(ctx, &IntegrityError{
			Err:          ErrNotSessionOwner,
			SessionID:    session.ID.String(),
			AssessmentID: session.AssessmentID.String(),
			CandidateKey: owner.Key(),
			Detail:       map[string]string{"owner": session.Candidate.Key()},
		})
	}
	return session, nil
}

// reject logs and reports integrity violations, then returns err unchanged.
func (s *SessionService) reject(ctx context.Context, err error) error {
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		return err
	}
	ev := s.log.Warn().Err(ie.Err).Str("session_id", ie.SessionID).Str("candidate", ie.CandidateKey)
	for k, v := range ie.Detail {
		ev = ev.Str(k, v)
	}
	ev.Msg("Integrity violation rejected")

	if reportErr := s.events.ReportIntegrityIncident(ctx, ie); reportErr != nil {
		s.log.Error().Err(reportErr).Str("session_id", ie.SessionID).Msg("Failed to enqueue integrity incident")
	}
	return err
}

// candidateHistory lists a candidate's attempts, expiring stale in-progress ones first.
func (s *SessionService) candidateHistory(ctx context.Context, a *model.Assessment, cand model.Candidate) ([]model.Session, error) {
	history, err := s.store.ListByCandidate(ctx, a.ID, cand.Key())
	if err != nil {
		return nil, fmt.Errorf("list candidate sessions: %w", err)
	}

	now := s.clock.Now()
	for i := range history {
		if !IsExpired(&history[i], a.TimeLimit, now) {
			continue
		}
		current, _, err := s.mutate(ctx, history[i].ID, nil, nil, readOnly)
		if err != nil {
			return nil, err
		}
		history[i] = *current
	}
	return history, nil
}

func (s *SessionService) findInProgress(ctx context.Context, assessmentID uuid.UUID, cand model.Candidate) (*model.Session, error) {
	history, err := s.store.ListByCandidate(ctx, assessmentID, cand.Key())
	if err != nil {
		return nil, err
	}
	for i := range history {
		if history[i].Status == model.SessionStatusInProgress {
			return &history[i], nil
		}
	}
	return nil, ErrSessionNotFound
}

func (s *SessionService) buildState(session *model.Session, a *model.Assessment, questions map[uuid.UUID]model.Question) *SessionState {
	now := s.clock.Now()
	st := &SessionState{
		SessionID:        session.ID,
		AssessmentID:     session.AssessmentID,
		Status:           session.Status,
		StartedAt:        session.CreatedAt,
		Deadline:         a.Deadline(session.CreatedAt),
		RemainingSeconds: int64(Remaining(session, a.TimeLimit, now) / time.Second),
		Answers:          make(map[uuid.UUID]*int, len(session.QuestionIDs)),
		AnsweredCount:    session.AnsweredCount(),
		ViolationCount:   session.ViolationCount(),
	}
	st.FlaggedForReview = session.FlaggedForReview(s.opts.ReviewViolationThreshold)

	available, answered := 0, 0
	for _, qid := range session.QuestionIDs {
		ans := session.Answers[qid]
		if ans.Answered() {
			v := *ans.SelectedIndex
			st.Answers[qid] = &v
		} else {
			st.Answers[qid] = nil
		}
		if _, ok := questions[qid]; !ok {
			continue
		}
		available++
		if ans.Answered() {
			answered++
		}
	}
	st.PercentComplete = percentHalfUp(answered, available)
	return st
}

func buildReview(session *model.Session, questions map[uuid.UUID]model.Question, showKey bool) []ReviewItem {
	items := make([]ReviewItem, 0, len(session.QuestionIDs))
	for pos, qid := range session.QuestionIDs {
		item := ReviewItem{Position: pos, QuestionID: qid}
		if a := session.Answers[qid]; a != nil {
			item.SelectedIndex = a.SelectedIndex
			if showKey {
				item.Correct = a.Correct
			}
		}
		q, ok := questions[qid]
		if !ok {
			item.Deleted = true
			items = append(items, item)
			continue
		}
		item.Prompt, item.Options = q.Prompt, q.Options
		if showKey {
			k := q.CorrectIndex
			item.CorrectIndex = &k
		}
		items = append(items, item)
	}
	return items
}

// buildSequence fixes the question order of a new session. Shuffled assessments
// use a source seeded from the session id, so the order is reproducible.
func buildSequence(sessionID uuid.UUID, a *model.Assessment, questions []model.Question) []uuid.UUID {
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	if a.Shuffle {
		rng := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sessionID[:8]), binary.BigEndian.Uint64(sessionID[8:])))
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}

	if a.QuestionCount > 0 && a.QuestionCount < len(ids) {
		ids = ids[:a.QuestionCount]
	}
	return ids
}

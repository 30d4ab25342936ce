package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioSubmitAfterTenMinutes(t *testing.T) {
	f := newFixture(t, 10)
	cand := model.UserCandidate("cand-a")
	s := f.start(t, cand)

	for i, q := range f.questions {
		f.answer(t, s, cand, q, i < 8)
	}
	f.clock.Advance(10 * time.Minute)

	done, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)

	assert.Equal(t, model.SessionStatusCompleted, done.Status)
	require.NotNil(t, done.Score)
	assert.Equal(t, 80, *done.Score)
	assert.True(t, *done.Passed)
	assert.Equal(t, t0.Add(10*time.Minute), *done.CompletedAt)

	stored := f.stored(t, s.ID)
	assert.Equal(t, model.SessionStatusCompleted, stored.Status)
	assert.Equal(t, []uuid.UUID{s.ID}, f.sink.certificates)
}

func TestScenarioReaperTimesOutAbandonedAttempt(t *testing.T) {
	f := newFixture(t, 10)
	cand := model.UserCandidate("cand-b")
	s := f.start(t, cand)

	for _, q := range f.questions[:5] {
		f.answer(t, s, cand, q, true)
	}
	f.clock.Advance(31 * time.Minute)

	n, err := f.reaper.ReapExpired(context.Background(), &f.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored := f.stored(t, s.ID)
	assert.Equal(t, model.SessionStatusTimedOut, stored.Status)
	assert.Equal(t, 50, *stored.Score)
	assert.False(t, *stored.Passed)
	assert.Equal(t, t0.Add(30*time.Minute), *stored.CompletedAt)
	for _, q := range f.questions[5:] {
		require.NotNil(t, stored.Answers[q.ID].Correct)
		assert.False(t, *stored.Answers[q.ID].Correct)
	}
	assert.Empty(t, f.sink.certificates)

	again, err := f.reaper.ReapExpired(context.Background(), &f.assessment.ID)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestScenarioAttemptsExhausted(t *testing.T) {
	f := newFixture(t, 3, func(a *model.Assessment) { a.MaxAttempts = intPtr(1) })
	cand := model.UserCandidate("cand-c")
	s := f.start(t, cand)
	_, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), f.assessment.ID, cand, "")
	d, ok := IsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialAttemptsExhausted, d.Reason)
}

func TestScenarioCooldownActive(t *testing.T) {
	f := newFixture(t, 3, func(a *model.Assessment) { a.Cooldown = durPtr(time.Hour) })
	cand := model.UserCandidate("cand-d")
	s := f.start(t, cand)
	_, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.Start(context.Background(), f.assessment.ID, cand, "")
	d, ok := IsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialCooldownActive, d.Reason)
	require.NotNil(t, d.CooldownEndsAt)
	assert.Equal(t, f.clock.Now().Add(50*time.Minute), *d.CooldownEndsAt)
}

func TestScenarioWrongAccessCode(t *testing.T) {
	f := newFixture(t, 3, func(a *model.Assessment) { a.AccessCode = strPtr("Quartz-77") })
	cand := model.UserCandidate("cand-e")

	_, err := f.svc.Start(context.Background(), f.assessment.ID, cand, "quartz-77")
	d, ok := IsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialBadAccessCode, d.Reason)

	history, err := f.store.ListByCandidate(context.Background(), f.assessment.ID, cand.Key())
	require.NoError(t, err)
	assert.Empty(t, history)

	res, err := f.svc.Start(context.Background(), f.assessment.ID, cand, "Quartz-77")
	require.NoError(t, err)
	assert.False(t, res.Resumed)
}

func TestStartResumesInProgressSession(t *testing.T) {
	f := newFixture(t, 4)
	cand := model.UserCandidate("u1")
	first := f.start(t, cand)

	res, err := f.svc.Start(context.Background(), f.assessment.ID, cand, "")
	require.NoError(t, err)
	assert.True(t, res.Resumed)
	assert.Equal(t, first.ID, res.Session.ID)
}

func TestStartPrepopulatesAnswersForSequence(t *testing.T) {
	f := newFixture(t, 4)
	s := f.start(t, model.UserCandidate("u1"))

	require.Len(t, s.QuestionIDs, 4)
	require.Len(t, s.Answers, 4)
	for i, q := range f.questions {
		assert.Equal(t, q.ID, s.QuestionIDs[i])
		assert.False(t, s.Answers[q.ID].Answered())
	}
	assert.Equal(t, t0, s.CreatedAt)
	assert.Nil(t, s.CompletedAt)
	assert.Equal(t, []string{EventSessionStarted}, f.sink.eventTypes())
}

func TestStartRejectsAssessmentWithoutQuestions(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.svc.Start(context.Background(), f.assessment.ID, model.UserCandidate("u1"), "")
	assert.ErrorIs(t, err, ErrNoQuestions)

	history, err := f.store.ListByCandidate(context.Background(), f.assessment.ID, "user:u1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStartUnknownAssessment(t *testing.T) {
	f := newFixture(t, 2)
	_, err := f.svc.Start(context.Background(), uuid.New(), model.UserCandidate("u1"), "")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestStartOutsideWindow(t *testing.T) {
	opens := t0.Add(time.Hour)
	f := newFixture(t, 2, func(a *model.Assessment) { a.StartsAt = &opens })

	_, err := f.svc.Start(context.Background(), f.assessment.ID, model.UserCandidate("u1"), "")
	d, ok := IsDenial(err)
	require.True(t, ok)
	assert.Equal(t, DenialOutsideWindow, d.Reason)
}

func TestStartExpiresStaleAttemptBeforeDeciding(t *testing.T) {
	f := newFixture(t, 2, func(a *model.Assessment) { a.MaxAttempts = intPtr(2) })
	cand := model.UserCandidate("u1")
	first := f.start(t, cand)

	f.clock.Advance(45 * time.Minute)
	res, err := f.svc.Start(context.Background(), f.assessment.ID, cand, "")
	require.NoError(t, err)
	assert.False(t, res.Resumed)
	assert.NotEqual(t, first.ID, res.Session.ID)
	assert.Equal(t, model.SessionStatusTimedOut, f.stored(t, first.ID).Status)
}

func TestSingleActiveSessionUnderConcurrentStarts(t *testing.T) {
	f := newFixture(t, 5)
	cand := model.UserCandidate("racer")

	const n = 16
	ids := make([]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Start(context.Background(), f.assessment.ID, cand, "")
			if assert.NoError(t, err) {
				ids[i] = res.Session.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	active, err := f.store.ListInProgress(context.Background(), &f.assessment.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRecordAnswerOverwritesAndClears(t *testing.T) {
	f := newFixture(t, 3)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	q := f.questions[1]

	_, err := f.svc.RecordAnswer(context.Background(), s.ID, &cand, q.ID, intPtr(3))
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.RecordAnswer(context.Background(), s.ID, &cand, q.ID, intPtr(1))
	require.NoError(t, err)

	stored := f.stored(t, s.ID)
	assert.Equal(t, 1, *stored.Answers[q.ID].SelectedIndex)
	assert.Equal(t, t0.Add(time.Minute), *stored.Answers[q.ID].AnsweredAt)
	assert.Nil(t, stored.Answers[q.ID].Correct)

	_, err = f.svc.RecordAnswer(context.Background(), s.ID, &cand, q.ID, nil)
	require.NoError(t, err)
	assert.False(t, f.stored(t, s.ID).Answers[q.ID].Answered())
}

func TestRecordAnswerForForeignQuestionIsIntegrityViolation(t *testing.T) {
	f := newFixture(t, 3)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	before := f.stored(t, s.ID)

	_, err := f.svc.RecordAnswer(context.Background(), s.ID, &cand, uuid.New(), intPtr(0))
	require.ErrorIs(t, err, ErrQuestionNotInSession)
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "question_not_in_session", ie.Kind())

	after := f.stored(t, s.ID)
	assert.Equal(t, before.Version, after.Version)
	assert.Len(t, f.sink.incidents, 1)
}

func TestMutationByOtherCandidateIsRejected(t *testing.T) {
	f := newFixture(t, 3)
	owner := model.UserCandidate("owner")
	intruder := model.UserCandidate("intruder")
	s := f.start(t, owner)

	_, err := f.svc.RecordAnswer(context.Background(), s.ID, &intruder, f.questions[0].ID, intPtr(0))
	assert.ErrorIs(t, err, ErrNotSessionOwner)
	_, err = f.svc.GetState(context.Background(), s.ID, &intruder)
	assert.ErrorIs(t, err, ErrNotSessionOwner)

	assert.False(t, f.stored(t, s.ID).Answers[f.questions[0].ID].Answered())
	assert.Len(t, f.sink.incidents, 2)
}

func TestExpiryDominatesMutations(t *testing.T) {
	f := newFixture(t, 4)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	f.answer(t, s, cand, f.questions[0], true)

	f.clock.Advance(30 * time.Minute)

	_, err := f.svc.RecordAnswer(context.Background(), s.ID, &cand, f.questions[1].ID, intPtr(1))
	assert.ErrorIs(t, err, ErrSessionExpired)

	stored := f.stored(t, s.ID)
	assert.Equal(t, model.SessionStatusTimedOut, stored.Status)
	assert.False(t, stored.Answers[f.questions[1].ID].Answered())
	assert.Equal(t, 25, *stored.Score)

	_, err = f.svc.RecordViolation(context.Background(), s.ID, &cand, model.ViolationLeft)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = f.svc.Submit(context.Background(), s.ID, &cand)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestSubmitOnExpiredSessionPersistsTimeout(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	f.clock.Advance(40 * time.Minute)

	_, err := f.svc.Submit(context.Background(), s.ID, &cand)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.Equal(t, model.SessionStatusTimedOut, f.stored(t, s.ID).Status)
}

func TestSubmitTwiceKeepsCompletionInstant(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	f.clock.Advance(5 * time.Minute)

	first, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Minute)

	_, err = f.svc.Submit(context.Background(), s.ID, &cand)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)

	stored := f.stored(t, s.ID)
	assert.Equal(t, *first.CompletedAt, *stored.CompletedAt)
	assert.False(t, stored.CompletedAt.Before(stored.CreatedAt))
	assert.Equal(t, *first.Score, *stored.Score)
}

func TestGetStateReportsRemainingTimeAndFlags(t *testing.T) {
	f := newFixture(t, 4)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	f.answer(t, s, cand, f.questions[2], false)
	for i := 0; i < 3; i++ {
		_, err := f.svc.RecordViolation(context.Background(), s.ID, &cand, model.ViolationLeft)
		require.NoError(t, err)
		_, err = f.svc.RecordViolation(context.Background(), s.ID, &cand, model.ViolationReturned)
		require.NoError(t, err)
	}
	f.clock.Advance(12 * time.Minute)

	st, err := f.svc.GetState(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusInProgress, st.Status)
	assert.Equal(t, int64(18*60), st.RemainingSeconds)
	assert.Equal(t, 3, st.ViolationCount)
	assert.True(t, st.FlaggedForReview)
	assert.Equal(t, 1, st.AnsweredCount)
	assert.Equal(t, 25, st.PercentComplete)
	assert.Len(t, st.Answers, 4)
	assert.Equal(t, (f.questions[2].CorrectIndex+1)%4, *st.Answers[f.questions[2].ID])
	assert.Nil(t, st.Answers[f.questions[0].ID])
}

func TestGetStateAfterDeadlineTransitionsAndReportsZero(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	f.clock.Advance(2 * time.Hour)

	st, err := f.svc.GetState(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusTimedOut, st.Status)
	assert.Zero(t, st.RemainingSeconds)
	assert.Equal(t, model.SessionStatusTimedOut, f.stored(t, s.ID).Status)
}

func TestGetStateUnknownSession(t *testing.T) {
	f := newFixture(t, 2)
	_, err := f.svc.GetState(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRecordViolationRejectsUnknownKind(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)

	_, err := f.svc.RecordViolation(context.Background(), s.ID, &cand, model.ViolationKind("blur"))
	assert.ErrorIs(t, err, ErrInvalidViolation)
}

func TestRecordViewKeepsFirstInstant(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	q := f.questions[0]

	_, err := f.svc.RecordView(context.Background(), s.ID, &cand, q.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.RecordView(context.Background(), s.ID, &cand, q.ID)
	require.NoError(t, err)

	assert.Equal(t, t0, f.stored(t, s.ID).QuestionViews[q.ID])

	_, err = f.svc.RecordView(context.Background(), s.ID, &cand, uuid.New())
	assert.ErrorIs(t, err, ErrQuestionNotInSession)
}

func TestDeletedQuestionScoredIncorrectButCounted(t *testing.T) {
	f := newFixture(t, 4)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	for _, q := range f.questions {
		f.answer(t, s, cand, q, true)
	}

	f.content.put(f.assessment, f.questions[1:])

	st, err := f.svc.GetState(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	assert.Equal(t, 100, st.PercentComplete)

	done, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	assert.Equal(t, 75, *done.Score)
	assert.True(t, *done.Passed)
	assert.False(t, *done.Answers[f.questions[0].ID].Correct)
}

func TestContentFailureAbortsWithoutPersisting(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)

	f.content.failWith(errors.New("connection refused"))
	_, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.Error(t, err)
	assert.Equal(t, model.SessionStatusInProgress, f.stored(t, s.ID).Status)

	f.content.failWith(nil)
	done, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, done.Status)
}

func TestPassThresholdReadAtGradingTime(t *testing.T) {
	f := newFixture(t, 4)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	for i, q := range f.questions {
		f.answer(t, s, cand, q, i < 3)
	}

	raised := *f.assessment
	raised.PassThreshold = 80
	f.content.put(&raised, f.questions)

	done, err := f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	assert.Equal(t, 75, *done.Score)
	assert.False(t, *done.Passed)
}

func TestConcurrentAnswersOnDifferentQuestionsAllPersist(t *testing.T) {
	f := newFixture(t, 10)
	f.svc = NewSessionService(f.store, f.content, f.clock, f.sink,
		SessionOptions{ReviewViolationThreshold: 3, MaxRetries: 10}, zerolog.Nop())
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)

	var wg sync.WaitGroup
	for _, q := range f.questions {
		wg.Add(1)
		go func(q model.Question) {
			defer wg.Done()
			choice := q.CorrectIndex
			_, err := f.svc.RecordAnswer(context.Background(), s.ID, &cand, q.ID, &choice)
			assert.NoError(t, err)
		}(q)
	}
	wg.Wait()

	assert.Equal(t, 10, f.stored(t, s.ID).AnsweredCount())
}

// flakyStore fails the first conflicts updates with a version conflict.
type flakyStore struct {
	*repository.MemorySessionStore
	mu        sync.Mutex
	conflicts int
}

func (f *flakyStore) Update(ctx context.Context, s *model.Session) error {
	f.mu.Lock()
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return repository.ErrVersionConflict
	}
	f.mu.Unlock()
	return f.MemorySessionStore.Update(ctx, s)
}

func TestVersionConflictIsRetried(t *testing.T) {
	f := newFixture(t, 2)
	store := &flakyStore{MemorySessionStore: f.store}
	svc := NewSessionService(store, f.content, f.clock, nil, SessionOptions{MaxRetries: 3}, zerolog.Nop())
	cand := model.UserCandidate("u1")

	res, err := svc.Start(context.Background(), f.assessment.ID, cand, "")
	require.NoError(t, err)

	store.conflicts = 2
	_, err = svc.RecordAnswer(context.Background(), res.Session.ID, &cand, f.questions[0].ID, intPtr(0))
	require.NoError(t, err)
	assert.True(t, f.stored(t, res.Session.ID).Answers[f.questions[0].ID].Answered())

	store.conflicts = 100
	_, err = svc.RecordAnswer(context.Background(), res.Session.ID, &cand, f.questions[1].ID, intPtr(0))
	assert.ErrorIs(t, err, ErrTooManyConflicts)
}

func TestAbandonGradesAndBlocksFurtherMutation(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)
	f.answer(t, s, cand, f.questions[0], true)

	done, err := f.svc.Abandon(context.Background(), s.ID, "account revoked")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusAbandoned, done.Status)
	assert.Equal(t, "account revoked", *done.AbandonReason)
	assert.Equal(t, 50, *done.Score)
	assert.Empty(t, f.sink.certificates)

	_, err = f.svc.RecordAnswer(context.Background(), s.ID, &cand, f.questions[1].ID, intPtr(1))
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	_, err = f.svc.Abandon(context.Background(), s.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestPaperHidesKeysAndFollowsSequence(t *testing.T) {
	f := newFixture(t, 3)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)

	paper, err := f.svc.Paper(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	require.Len(t, paper.Questions, 3)
	for i, q := range paper.Questions {
		assert.Equal(t, s.QuestionIDs[i], q.ID)
		assert.Equal(t, i, q.Position)
	}

	_, err = f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	_, err = f.svc.Paper(context.Background(), s.ID, &cand)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
}

func TestResultIncludesStandingAndReview(t *testing.T) {
	f := newFixture(t, 4, func(a *model.Assessment) {
		a.ResultsVisible = true
		a.AllowReview = true
		a.MaxAttempts = intPtr(3)
	})

	scores := map[string]int{"a": 4, "b": 2, "c": 4, "d": 1}
	sessions := map[string]*model.Session{}
	for name, correct := range scores {
		cand := model.UserCandidate(name)
		s := f.start(t, cand)
		for i, q := range f.questions {
			f.answer(t, s, cand, q, i < correct)
		}
		_, err := f.svc.Submit(context.Background(), s.ID, &cand)
		require.NoError(t, err)
		sessions[name] = s
	}

	cand := model.UserCandidate("b")
	res, err := f.svc.Result(context.Background(), sessions["b"].ID, &cand)
	require.NoError(t, err)
	assert.Equal(t, 50, *res.Score)
	assert.Equal(t, 3, *res.Rank)
	assert.Equal(t, 25, *res.Percentile)
	assert.Equal(t, 4, *res.CohortSize)
	assert.Equal(t, 1, res.Retake.AttemptsUsed)
	assert.Equal(t, 2, *res.Retake.AttemptsRemaining)
	assert.True(t, res.Retake.CanRetake)
	require.Len(t, res.Review, 4)
	assert.True(t, *res.Review[0].Correct)
	assert.False(t, *res.Review[3].Correct)
	assert.Equal(t, f.questions[3].CorrectIndex, *res.Review[3].CorrectIndex)

	top := model.UserCandidate("a")
	res, err = f.svc.Result(context.Background(), sessions["a"].ID, &top)
	require.NoError(t, err)
	assert.Equal(t, 1, *res.Rank)
}

func TestResultHidesScoreWhenNotVisible(t *testing.T) {
	f := newFixture(t, 2)
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)

	_, err := f.svc.Result(context.Background(), s.ID, &cand)
	assert.ErrorIs(t, err, ErrNotTerminal)

	_, err = f.svc.Submit(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	res, err := f.svc.Result(context.Background(), s.ID, &cand)
	require.NoError(t, err)
	assert.Nil(t, res.Score)
	assert.Nil(t, res.Rank)
	assert.Empty(t, res.Review)
}

func TestStartByShareCodeUsesContactIdentity(t *testing.T) {
	f := newFixture(t, 2, func(a *model.Assessment) { a.ShareCode = strPtr("open-day") })
	cand := model.ContactCandidate("fp-1")

	res, a, err := f.svc.StartByShareCode(context.Background(), "open-day", cand, "")
	require.NoError(t, err)
	assert.Equal(t, f.assessment.ID, a.ID)
	assert.Equal(t, "contact:fp-1", res.Session.Candidate.Key())

	_, _, err = f.svc.StartByShareCode(context.Background(), "nope", cand, "")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestShuffledSequenceIsSubsetAndReproducible(t *testing.T) {
	f := newFixture(t, 10, func(a *model.Assessment) {
		a.Shuffle = true
		a.QuestionCount = 6
	})
	id := uuid.New()

	seq := buildSequence(id, f.assessment, f.questions)
	require.Len(t, seq, 6)
	assert.Equal(t, seq, buildSequence(id, f.assessment, f.questions))

	known := map[uuid.UUID]bool{}
	for _, q := range f.questions {
		known[q.ID] = true
	}
	seen := map[uuid.UUID]bool{}
	for _, qid := range seq {
		assert.True(t, known[qid])
		assert.False(t, seen[qid])
		seen[qid] = true
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsReapsBeforeAggregating(t *testing.T) {
	f := newFixture(t, 4)
	analytics := NewAnalyticsService(f.store, f.content, f.reaper, 3, zerolog.Nop())

	done := model.UserCandidate("done")
	s := f.start(t, done)
	for _, q := range f.questions {
		f.answer(t, s, done, q, true)
	}
	_, err := f.svc.Submit(context.Background(), s.ID, &done)
	require.NoError(t, err)

	stale := model.UserCandidate("stale")
	st := f.start(t, stale)
	f.answer(t, st, stale, f.questions[0], true)
	f.answer(t, st, stale, f.questions[1], false)

	f.clock.Advance(time.Hour)

	out, err := analytics.Assessment(context.Background(), f.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Reaped)
	assert.Equal(t, 2, out.Summary.Attempts)
	assert.Equal(t, 1, out.Summary.Completed)
	assert.Equal(t, 1, out.Summary.TimedOut)
	assert.InDelta(t, 62.5, *out.Summary.MeanScore, 0.001)
	assert.Equal(t, f.assessment.ID, out.Assessment.ID)

	require.Len(t, out.Questions, 4)
	first := out.Questions[0]
	assert.Equal(t, f.questions[0].ID, first.QuestionID)
	assert.Equal(t, 100, *first.PercentCorrect)
	assert.Equal(t, 1, *first.Position)
	second := out.Questions[1]
	assert.Equal(t, 50, *second.PercentCorrect)
}

func TestAnalyticsResultsPaginationAndStanding(t *testing.T) {
	f := newFixture(t, 2)
	analytics := NewAnalyticsService(f.store, f.content, f.reaper, 3, zerolog.Nop())

	for i, name := range []string{"a", "b", "c"} {
		cand := model.UserCandidate(name)
		s := f.start(t, cand)
		for j, q := range f.questions {
			f.answer(t, s, cand, q, j < 2-i%3)
		}
		_, err := f.svc.Submit(context.Background(), s.ID, &cand)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	rows, total, err := analytics.Results(context.Background(), f.assessment.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "user:c", rows[0].CandidateKey)
	assert.Equal(t, 0, *rows[0].Score)
	assert.Equal(t, 3, *rows[0].Rank)
	assert.Equal(t, "user:b", rows[1].CandidateKey)
	assert.Equal(t, 2, *rows[1].Rank)
	assert.Equal(t, 33, *rows[1].Percentile)

	rows, _, err = analytics.Results(context.Background(), f.assessment.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, *rows[0].Rank)

	_, _, err = analytics.Results(context.Background(), uuid.New(), 1, 10)
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAnalyticsHeatmap(t *testing.T) {
	f := newFixture(t, 2)
	analytics := NewAnalyticsService(f.store, f.content, f.reaper, 3, zerolog.Nop())
	cand := model.UserCandidate("u1")
	s := f.start(t, cand)

	_, err := f.svc.RecordView(context.Background(), s.ID, &cand, f.questions[0].ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.RecordViolation(context.Background(), s.ID, &cand, model.ViolationLeft)
	require.NoError(t, err)

	hm, err := analytics.Heatmap(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, hm.Buckets[0].Violations)

	_, err = analytics.Heatmap(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

type fakeIncidents struct {
	counts map[string]int64
	err    error
}

func (f fakeIncidents) CountByAssessment(context.Context, uuid.UUID) (map[string]int64, error) {
	return f.counts, f.err
}

func TestMonitorSnapshot(t *testing.T) {
	f := newFixture(t, 3)
	incidents := fakeIncidents{counts: map[string]int64{"user:live": 2, "user:gone": 1}}
	monitor := NewMonitorService(f.store, f.content, incidents, f.reaper, f.clock, 1, zerolog.Nop())

	gone := model.UserCandidate("gone")
	f.start(t, gone)
	f.clock.Advance(20 * time.Minute)

	live := model.UserCandidate("live")
	s := f.start(t, live)
	f.answer(t, s, live, f.questions[0], true)
	_, err := f.svc.RecordViolation(context.Background(), s.ID, &live, model.ViolationLeft)
	require.NoError(t, err)
	f.clock.Advance(15 * time.Minute)

	snap, err := monitor.Snapshot(context.Background(), f.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Reaped)
	assert.Equal(t, int64(3), snap.TotalIncidents)
	require.Len(t, snap.Active, 1)

	entry := snap.Active[0]
	assert.Equal(t, s.ID, entry.SessionID)
	assert.Equal(t, int64(15*60), entry.RemainingSeconds)
	assert.Equal(t, 1, entry.AnsweredCount)
	assert.Equal(t, 3, entry.QuestionCount)
	assert.True(t, entry.FlaggedForReview)
	assert.Equal(t, int64(2), entry.Incidents)
}

func TestMonitorSnapshotToleratesIncidentFailure(t *testing.T) {
	f := newFixture(t, 1)
	monitor := NewMonitorService(f.store, f.content, fakeIncidents{err: errors.New("down")}, f.reaper, f.clock, 3, zerolog.Nop())
	f.start(t, model.UserCandidate("u1"))

	snap, err := monitor.Snapshot(context.Background(), f.assessment.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Active, 1)
	assert.Zero(t, snap.TotalIncidents)
}

func TestReviewFlagAgreesAcrossReadersWithUnsetThreshold(t *testing.T) {
	f := newFixture(t, 2)
	analytics := NewAnalyticsService(f.store, f.content, f.reaper, 0, zerolog.Nop())
	monitor := NewMonitorService(f.store, f.content, nil, f.reaper, f.clock, 0, zerolog.Nop())

	leave := func(cand model.Candidate, id uuid.UUID, times int) {
		for i := 0; i < times; i++ {
			_, err := f.svc.RecordViolation(context.Background(), id, &cand, model.ViolationLeft)
			require.NoError(t, err)
		}
	}
	calm := model.UserCandidate("calm")
	calmSession := f.start(t, calm)
	leave(calm, calmSession.ID, 1)

	restless := model.UserCandidate("restless")
	restlessSession := f.start(t, restless)
	leave(restless, restlessSession.ID, model.DefaultReviewViolationThreshold)

	want := map[uuid.UUID]bool{calmSession.ID: false, restlessSession.ID: true}

	rows, _, err := analytics.Results(context.Background(), f.assessment.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, want[row.SessionID], row.FlaggedForReview, "results row %s", row.SessionID)
	}

	snap, err := monitor.Snapshot(context.Background(), f.assessment.ID)
	require.NoError(t, err)
	require.Len(t, snap.Active, 2)
	for _, entry := range snap.Active {
		assert.Equal(t, want[entry.SessionID], entry.FlaggedForReview, "monitor entry %s", entry.SessionID)
	}

	summary, err := analytics.Assessment(context.Background(), f.assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Summary.FlaggedForReview)

	unset := NewSessionService(f.store, f.content, f.clock, nil, SessionOptions{}, zerolog.Nop())
	for id, flagged := range want {
		owner := calm
		if id == restlessSession.ID {
			owner = restless
		}
		st, err := unset.GetState(context.Background(), id, &owner)
		require.NoError(t, err)
		assert.Equal(t, flagged, st.FlaggedForReview)
	}
}

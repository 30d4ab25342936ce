package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terminalAt(status model.SessionStatus, at time.Time) model.Session {
	return model.Session{ID: uuid.New(), Status: status, CreatedAt: at.Add(-time.Minute), CompletedAt: &at}
}

func TestEvaluateChecksInOrder(t *testing.T) {
	now := t0
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name       string
		assessment model.Assessment
		history    []model.Session
		code       string
		want       DenialReason
	}{
		{
			name:       "not yet open",
			assessment: model.Assessment{StartsAt: &after},
			want:       DenialOutsideWindow,
		},
		{
			name:       "already closed",
			assessment: model.Assessment{EndsAt: &before},
			want:       DenialOutsideWindow,
		},
		{
			name:       "window beats access code",
			assessment: model.Assessment{EndsAt: &before, AccessCode: strPtr("x")},
			code:       "wrong",
			want:       DenialOutsideWindow,
		},
		{
			name:       "access code is case sensitive",
			assessment: model.Assessment{AccessCode: strPtr("Code")},
			code:       "code",
			want:       DenialBadAccessCode,
		},
		{
			name:       "code beats attempts",
			assessment: model.Assessment{AccessCode: strPtr("Code"), MaxAttempts: intPtr(1)},
			history:    []model.Session{terminalAt(model.SessionStatusCompleted, before)},
			want:       DenialBadAccessCode,
		},
		{
			name:       "abandoned attempts count",
			assessment: model.Assessment{MaxAttempts: intPtr(2)},
			history: []model.Session{
				terminalAt(model.SessionStatusAbandoned, before),
				terminalAt(model.SessionStatusTimedOut, before),
			},
			want: DenialAttemptsExhausted,
		},
		{
			name:       "attempts beat cooldown",
			assessment: model.Assessment{MaxAttempts: intPtr(1), Cooldown: durPtr(2 * time.Hour)},
			history:    []model.Session{terminalAt(model.SessionStatusCompleted, before)},
			want:       DenialAttemptsExhausted,
		},
		{
			name:       "cooldown measured from latest attempt",
			assessment: model.Assessment{Cooldown: durPtr(90 * time.Minute)},
			history: []model.Session{
				terminalAt(model.SessionStatusCompleted, now.Add(-3*time.Hour)),
				terminalAt(model.SessionStatusCompleted, before),
			},
			want: DenialCooldownActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(&tt.assessment, tt.history, tt.code, now)
			require.NotNil(t, d.Denial)
			assert.Equal(t, tt.want, d.Denial.Reason)
			assert.False(t, d.Allowed())
		})
	}
}

func TestEvaluateCooldownEndsAt(t *testing.T) {
	a := model.Assessment{Cooldown: durPtr(time.Hour)}
	last := t0.Add(-10 * time.Minute)

	d := Evaluate(&a, []model.Session{terminalAt(model.SessionStatusCompleted, last)}, "", t0)
	require.NotNil(t, d.Denial)
	require.NotNil(t, d.Denial.CooldownEndsAt)
	assert.Equal(t, t0.Add(50*time.Minute), *d.Denial.CooldownEndsAt)

	d = Evaluate(&a, []model.Session{terminalAt(model.SessionStatusCompleted, last)}, "", last.Add(time.Hour))
	assert.True(t, d.Allowed())
}

func TestEvaluateWindowBoundsAreInclusive(t *testing.T) {
	opens, closes := t0, t0.Add(time.Hour)
	a := model.Assessment{StartsAt: &opens, EndsAt: &closes}

	assert.True(t, Evaluate(&a, nil, "", opens).Allowed())
	assert.True(t, Evaluate(&a, nil, "", closes).Allowed())
	assert.False(t, Evaluate(&a, nil, "", closes.Add(time.Second)).Allowed())
}

func TestEvaluateResumesInProgress(t *testing.T) {
	active := model.Session{ID: uuid.New(), Status: model.SessionStatusInProgress, CreatedAt: t0}
	d := Evaluate(&model.Assessment{MaxAttempts: intPtr(1)}, []model.Session{active}, "", t0)

	require.True(t, d.Allowed())
	require.NotNil(t, d.Resume)
	assert.Equal(t, active.ID, d.Resume.ID)
}

func TestEvaluateFreshStart(t *testing.T) {
	d := Evaluate(&model.Assessment{}, nil, "", t0)
	assert.True(t, d.Allowed())
	assert.Nil(t, d.Resume)
}

func TestRetake(t *testing.T) {
	a := model.Assessment{MaxAttempts: intPtr(3), Cooldown: durPtr(time.Hour)}
	history := []model.Session{
		terminalAt(model.SessionStatusCompleted, t0.Add(-2*time.Hour)),
		terminalAt(model.SessionStatusTimedOut, t0.Add(-20*time.Minute)),
	}

	st := Retake(&a, history, t0)
	assert.Equal(t, 2, st.AttemptsUsed)
	assert.Equal(t, 1, *st.AttemptsRemaining)
	assert.Equal(t, t0.Add(40*time.Minute), *st.CooldownEndsAt)
	assert.False(t, st.CanRetake)

	st = Retake(&a, history, t0.Add(time.Hour))
	assert.Nil(t, st.CooldownEndsAt)
	assert.True(t, st.CanRetake)

	unlimited := Retake(&model.Assessment{}, history, t0)
	assert.Nil(t, unlimited.AttemptsRemaining)
	assert.True(t, unlimited.CanRetake)
}

func TestDenialError(t *testing.T) {
	ends := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "start denied: BAD_ACCESS_CODE", (&Denial{Reason: DenialBadAccessCode}).Error())
	assert.Contains(t, (&Denial{Reason: DenialCooldownActive, CooldownEndsAt: &ends}).Error(), "2026-03-02T10:00:00Z")
}

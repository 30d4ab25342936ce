package service

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestNextState(t *testing.T) {
	limit := 30 * time.Minute
	active := &model.Session{Status: model.SessionStatusInProgress, CreatedAt: t0}

	assert.Equal(t, model.SessionStatusInProgress, NextState(active, limit, t0))
	assert.Equal(t, model.SessionStatusInProgress, NextState(active, limit, t0.Add(limit-time.Nanosecond)))
	assert.Equal(t, model.SessionStatusTimedOut, NextState(active, limit, t0.Add(limit)))
	assert.Equal(t, model.SessionStatusTimedOut, NextState(active, limit, t0.Add(3*limit)))
	assert.Equal(t, model.SessionStatusInProgress, active.Status)

	for _, st := range []model.SessionStatus{model.SessionStatusCompleted, model.SessionStatusTimedOut, model.SessionStatusAbandoned} {
		done := &model.Session{Status: st, CreatedAt: t0}
		assert.Equal(t, st, NextState(done, limit, t0.Add(time.Hour)))
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	limit := 10 * time.Minute
	s := &model.Session{Status: model.SessionStatusInProgress, CreatedAt: t0}

	assert.Equal(t, limit, Remaining(s, limit, t0))
	assert.Equal(t, 4*time.Minute, Remaining(s, limit, t0.Add(6*time.Minute)))
	assert.Zero(t, Remaining(s, limit, t0.Add(time.Hour)))

	s.Status = model.SessionStatusCompleted
	assert.Zero(t, Remaining(s, limit, t0))
}

func TestTerminalInstant(t *testing.T) {
	limit := 10 * time.Minute
	s := &model.Session{Status: model.SessionStatusInProgress, CreatedAt: t0}

	assert.Equal(t, t0.Add(limit), terminalInstant(s, model.SessionStatusTimedOut, limit, t0.Add(time.Hour)))
	assert.Equal(t, t0.Add(time.Minute), terminalInstant(s, model.SessionStatusCompleted, limit, t0.Add(time.Minute)))
	assert.Equal(t, t0, terminalInstant(s, model.SessionStatusCompleted, limit, t0.Add(-time.Minute)))
}

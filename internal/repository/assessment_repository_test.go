package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assessmentColumnNames = []string{
	"id", "title", "time_limit_seconds", "pass_threshold", "question_count", "shuffle",
	"max_attempts", "cooldown_seconds", "access_code", "starts_at", "ends_at",
	"allow_review", "results_visible", "share_code", "updated_at",
}

func TestAssessmentRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	cooldown := int64(600)
	code := "Orion"
	updated := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`FROM assessments WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(assessmentColumnNames).AddRow(
			id, "Physics", int64(1800), 70, 10, true,
			intPtr(2), &cooldown, &code, (*time.Time)(nil), (*time.Time)(nil),
			false, true, (*string)(nil), updated,
		))

	a, err := NewAssessmentRepository(mock).GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, a.TimeLimit)
	assert.Equal(t, 10*time.Minute, *a.Cooldown)
	assert.Equal(t, 2, *a.MaxAttempts)
	assert.True(t, a.AccessCodeRequired())
	assert.True(t, a.ResultsVisible)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssessmentRepositoryNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM assessments WHERE share_code = \$1`).
		WithArgs("gone").
		WillReturnRows(pgxmock.NewRows(assessmentColumnNames))

	_, err = NewAssessmentRepository(mock).GetByShareCode(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAssessmentRepositoryListQuestions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	aid := uuid.New()
	q1, q2 := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM questions\s+WHERE assessment_id = \$1\s+ORDER BY position ASC, id ASC`).
		WithArgs(aid).
		WillReturnRows(pgxmock.NewRows([]string{"id", "assessment_id", "prompt", "options", "correct_index", "position"}).
			AddRow(q1, aid, "2+2?", []byte(`["3","4"]`), 1, 1).
			AddRow(q2, aid, "Capital of France?", []byte(`["Paris","Lyon","Nice"]`), 0, 2))

	questions, err := NewAssessmentRepository(mock).ListQuestions(context.Background(), aid)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, []string{"3", "4"}, questions[0].Options)
	assert.Equal(t, 1, questions[0].CorrectIndex)
	assert.Equal(t, q2, questions[1].ID)
	assert.Len(t, questions[1].Options, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const assessmentColumns = `id, title, time_limit_seconds, pass_threshold, question_count, shuffle,
	max_attempts, cooldown_seconds, access_code, starts_at, ends_at,
	allow_review, results_visible, share_code, updated_at`

// AssessmentRepository reads authored assessments and their questions.
// The engine never writes these tables.
type AssessmentRepository struct {
	db DBTX
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(db DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func scanAssessment(row scanner) (*model.Assessment, error) {
	var (
		a               model.Assessment
		timeLimitSecs   int64
		cooldownSeconds *int64
	)
	err := row.Scan(
		&a.ID, &a.Title, &timeLimitSecs, &a.PassThreshold, &a.QuestionCount, &a.Shuffle,
		&a.MaxAttempts, &cooldownSeconds, &a.AccessCode, &a.StartsAt, &a.EndsAt,
		&a.AllowReview, &a.ResultsVisible, &a.ShareCode, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.TimeLimit = time.Duration(timeLimitSecs) * time.Second
	if cooldownSeconds != nil {
		d := time.Duration(*cooldownSeconds) * time.Second
		a.Cooldown = &d
	}
	return &a, nil
}

// GetByID retrieves an assessment by id.
func (r *AssessmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	a, err := scanAssessment(r.db.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

// GetByShareCode retrieves an assessment by its public share code.
func (r *AssessmentRepository) GetByShareCode(ctx context.Context, code string) (*model.Assessment, error) {
	a, err := scanAssessment(r.db.QueryRow(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE share_code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("get assessment by share code: %w", err)
	}
	return a, nil
}

// ListQuestions returns the authored question set in position order.
func (r *AssessmentRepository) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, assessment_id, prompt, options, correct_index, position
		 FROM questions
		 WHERE assessment_id = $1
		 ORDER BY position ASC, id ASC`, assessmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q       model.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.Prompt, &options, &q.CorrectIndex, &q.Position); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

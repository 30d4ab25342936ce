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

const sessionColumns = `id, assessment_id, candidate_user_id, contact_fingerprint, status,
	created_at, completed_at, question_ids, answers, violations, question_views,
	score, passed, certificate_url, abandon_reason, version`

// SessionRepository persists assessment sessions in PostgreSQL.
// Mutations are guarded by the version column (optimistic concurrency).
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// sessionRow carries the JSONB columns as raw bytes.
type sessionRow struct {
	questionIDs []byte
	answers     []byte
	violations  []byte
	views       []byte
}

func encodeSession(s *model.Session) (*sessionRow, error) {
	var (
		row sessionRow
		err error
	)
	if row.questionIDs, err = json.Marshal(s.QuestionIDs); err != nil {
		return nil, fmt.Errorf("encode question ids: %w", err)
	}
	answers := s.Answers
	if answers == nil {
		answers = map[uuid.UUID]*model.Answer{}
	}
	if row.answers, err = json.Marshal(answers); err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	violations := s.Violations
	if violations == nil {
		violations = []model.Violation{}
	}
	if row.violations, err = json.Marshal(violations); err != nil {
		return nil, fmt.Errorf("encode violations: %w", err)
	}
	views := s.QuestionViews
	if views == nil {
		views = map[uuid.UUID]time.Time{}
	}
	if row.views, err = json.Marshal(views); err != nil {
		return nil, fmt.Errorf("encode question views: %w", err)
	}
	return &row, nil
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		s   model.Session
		raw sessionRow
	)
	err := row.Scan(
		&s.ID, &s.AssessmentID, &s.Candidate.UserID, &s.Candidate.ContactFingerprint, &s.Status,
		&s.CreatedAt, &s.CompletedAt, &raw.questionIDs, &raw.answers, &raw.violations, &raw.views,
		&s.Score, &s.Passed, &s.CertificateURL, &s.AbandonReason, &s.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw.questionIDs, &s.QuestionIDs); err != nil {
		return nil, fmt.Errorf("decode question ids: %w", err)
	}
	s.Answers = map[uuid.UUID]*model.Answer{}
	if len(raw.answers) > 0 {
		if err := json.Unmarshal(raw.answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(raw.violations) > 0 {
		if err := json.Unmarshal(raw.violations, &s.Violations); err != nil {
			return nil, fmt.Errorf("decode violations: %w", err)
		}
	}
	if len(raw.views) > 0 {
		if err := json.Unmarshal(raw.views, &s.QuestionViews); err != nil {
			return nil, fmt.Errorf("decode question views: %w", err)
		}
	}
	return &s, nil
}

func collectSessions(rows pgx.Rows) ([]model.Session, error) {
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Create inserts a new in-progress session. The partial unique index on
// (assessment_id, candidate_key) WHERE status = 'in_progress' turns a
// concurrent second start into ErrActiveSessionExists.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	raw, err := encodeSession(s)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO assessment_sessions (
			id, assessment_id, candidate_key, candidate_user_id, contact_fingerprint, status,
			created_at, question_ids, answers, violations, question_views, version
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		 ON CONFLICT (assessment_id, candidate_key) WHERE status = 'in_progress' DO NOTHING
		 RETURNING version`,
		s.ID, s.AssessmentID, s.Candidate.Key(), s.Candidate.UserID, s.Candidate.ContactFingerprint,
		s.Status, s.CreatedAt, raw.questionIDs, raw.answers, raw.violations, raw.views,
	).Scan(&s.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrActiveSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM assessment_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// Update writes the mutable columns if the stored version still equals
// s.Version, then bumps s.Version. A stale version yields ErrVersionConflict.
func (r *SessionRepository) Update(ctx context.Context, s *model.Session) error {
	raw, err := encodeSession(s)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE assessment_sessions
		 SET status = $1, completed_at = $2, answers = $3, violations = $4, question_views = $5,
		     score = $6, passed = $7, abandon_reason = $8, version = version + 1
		 WHERE id = $9 AND version = $10`,
		s.Status, s.CompletedAt, raw.answers, raw.violations, raw.views,
		s.Score, s.Passed, s.AbandonReason, s.ID, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	s.Version++
	return nil
}

// SetCertificateURL records the certificate link of a passing terminal session.
func (r *SessionRepository) SetCertificateURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE assessment_sessions
		 SET certificate_url = $1, version = version + 1
		 WHERE id = $2 AND status IN ('completed', 'timed_out') AND passed = TRUE`,
		url, id,
	)
	if err != nil {
		return fmt.Errorf("set certificate url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListByCandidate returns every attempt of a candidate at an assessment, oldest first.
func (r *SessionRepository) ListByCandidate(ctx context.Context, assessmentID uuid.UUID, candidateKey string) ([]model.Session, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1 AND candidate_key = $2
		 ORDER BY created_at ASC`, assessmentID, candidateKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidate sessions: %w", err)
	}
	return collectSessions(rows)
}

// ListInProgress returns in-progress sessions, optionally scoped to one assessment.
func (r *SessionRepository) ListInProgress(ctx context.Context, assessmentID *uuid.UUID) ([]model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM assessment_sessions WHERE status = 'in_progress'`
	var args []any
	if assessmentID != nil {
		query += ` AND assessment_id = $1`
		args = append(args, *assessmentID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list in-progress sessions: %w", err)
	}
	return collectSessions(rows)
}

// ListByStatus returns an assessment's sessions whose status is one of statuses.
func (r *SessionRepository) ListByStatus(ctx context.Context, assessmentID uuid.UUID, statuses ...model.SessionStatus) ([]model.Session, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1 AND status = ANY($2)
		 ORDER BY created_at ASC`, assessmentID, names,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions by status: %w", err)
	}
	return collectSessions(rows)
}

// ListByAssessmentPaginated returns one page of an assessment's sessions, newest first.
func (r *SessionRepository) ListByAssessmentPaginated(ctx context.Context, assessmentID uuid.UUID, limit, offset int) ([]model.Session, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM assessment_sessions WHERE assessment_id = $1`, assessmentID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE assessment_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, assessmentID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// AnalyticsService serves cohort statistics to administrators. Every read
// reaps stale sessions of the assessment first.
type AnalyticsService struct {
	store           SessionStore
	content         ContentProvider
	reaper          *Reaper
	reviewThreshold int
	log             zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(store SessionStore, content ContentProvider, reaper *Reaper, reviewThreshold int, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:           store,
		content:         content,
		reaper:          reaper,
		reviewThreshold: model.ReviewThreshold(reviewThreshold),
		log:             log.With().Str("component", "analytics_service").Logger(),
	}
}

// QuestionInsight is a QuestionStat enriched with authored content.
type QuestionInsight struct {
	QuestionStat
	Position *int   `json:"position,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Deleted  bool   `json:"deleted,omitempty"`
}

// AssessmentAnalytics is the analytics payload of one assessment.
type AssessmentAnalytics struct {
	Assessment model.AssessmentInfo `json:"assessment"`
	Summary    Summary              `json:"summary"`
	Questions  []QuestionInsight    `json:"questions"`
	Reaped     int                  `json:"reaped"`
}

// ResultRow is one line of the admin results listing.
type ResultRow struct {
	SessionID        uuid.UUID           `json:"session_id"`
	CandidateKey     string              `json:"candidate_key"`
	Status           model.SessionStatus `json:"status"`
	StartedAt        time.Time           `json:"started_at"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
	AnsweredCount    int                 `json:"answered_count"`
	ViolationCount   int                 `json:"violation_count"`
	FlaggedForReview bool                `json:"flagged_for_review"`
	Score            *int                `json:"score,omitempty"`
	Passed           *bool               `json:"passed,omitempty"`
	Percentile       *int                `json:"percentile,omitempty"`
	Rank             *int                `json:"rank,omitempty"`
	CertificateURL   *string             `json:"certificate_url,omitempty"`
	AbandonReason    *string             `json:"abandon_reason,omitempty"`
}

// Assessment returns the summary and question difficulty of an assessment.
func (s *AnalyticsService) Assessment(ctx context.Context, assessmentID uuid.UUID) (*AssessmentAnalytics, error) {
	a, err := s.content.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	reaped, err := s.reaper.ReapExpired(ctx, &assessmentID)
	if err != nil {
		return nil, fmt.Errorf("reap: %w", err)
	}

	sessions, err := s.store.ListByStatus(ctx, assessmentID,
		model.SessionStatusInProgress, model.SessionStatusCompleted,
		model.SessionStatusTimedOut, model.SessionStatusAbandoned,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	questions, err := s.content.ListQuestions(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	idx := questionIndex(questions)

	stats := QuestionDifficulty(sessions)
	insights := make([]QuestionInsight, len(stats))
	for i, st := range stats {
		insights[i] = QuestionInsight{QuestionStat: st}
		q, ok := idx[st.QuestionID]
		if !ok {
			insights[i].Deleted = true
			continue
		}
		pos := q.Position
		insights[i].Position, insights[i].Prompt = &pos, q.Prompt
	}

	return &AssessmentAnalytics{
		Assessment: a.Info(),
		Summary:    Summarize(sessions, s.reviewThreshold),
		Questions:  insights,
		Reaped:     reaped,
	}, nil
}

// Results returns one page of sessions, newest first, with cohort standing.
func (s *AnalyticsService) Results(ctx context.Context, assessmentID uuid.UUID, page, perPage int) ([]ResultRow, int, error) {
	if _, err := s.content.GetAssessment(ctx, assessmentID); err != nil {
		return nil, 0, err
	}
	if _, err := s.reaper.ReapExpired(ctx, &assessmentID); err != nil {
		return nil, 0, fmt.Errorf("reap: %w", err)
	}

	offset := (page - 1) * perPage
	sessions, total, err := s.store.ListByAssessmentPaginated(ctx, assessmentID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	cohort, err := s.store.ListByStatus(ctx, assessmentID, model.SessionStatusCompleted, model.SessionStatusTimedOut)
	if err != nil {
		return nil, 0, fmt.Errorf("list cohort: %w", err)
	}
	scores := scoresOf(cohort)

	rows := make([]ResultRow, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		row := ResultRow{
			SessionID:        sess.ID,
			CandidateKey:     sess.Candidate.Key(),
			Status:           sess.Status,
			StartedAt:        sess.CreatedAt,
			CompletedAt:      sess.CompletedAt,
			AnsweredCount:    sess.AnsweredCount(),
			ViolationCount:   sess.ViolationCount(),
			FlaggedForReview: sess.FlaggedForReview(s.reviewThreshold),
			Score:            sess.Score,
			Passed:           sess.Passed,
			CertificateURL:   sess.CertificateURL,
			AbandonReason:    sess.AbandonReason,
		}
		if sess.Status.CountsForAnalytics() && sess.IsGraded() {
			st := PercentileRank(*sess.Score, scores)
			row.Percentile, row.Rank = &st.Percentile, &st.Rank
		}
		rows[i] = row
	}
	return rows, total, nil
}

// Heatmap returns the violation heatmap of one session.
func (s *AnalyticsService) Heatmap(ctx context.Context, sessionID uuid.UUID) (*Heatmap, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	hm := ViolationHeatmap(session)
	return &hm, nil
}

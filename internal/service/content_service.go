package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// AssessmentSource is the authoritative content store.
type AssessmentSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	GetByShareCode(ctx context.Context, code string) (*model.Assessment, error)
	ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

// ContentService serves assessment rules and question sets through a Redis cache-aside layer.
// A nil Redis client disables caching.
type ContentService struct {
	src AssessmentSource
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(src AssessmentSource, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ContentService {
	return &ContentService{
		src: src,
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "content_service").Logger(),
	}
}

// cachedAssessment keeps the fields the public JSON shape hides.
type cachedAssessment struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	TimeLimitSeconds int64      `json:"time_limit_seconds"`
	PassThreshold    int        `json:"pass_threshold"`
	QuestionCount    int        `json:"question_count"`
	Shuffle          bool       `json:"shuffle"`
	MaxAttempts      *int       `json:"max_attempts"`
	CooldownSeconds  *int64     `json:"cooldown_seconds"`
	AccessCode       *string    `json:"access_code"`
	StartsAt         *time.Time `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at"`
	AllowReview      bool       `json:"allow_review"`
	ResultsVisible   bool       `json:"results_visible"`
	ShareCode        *string    `json:"share_code"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type cachedQuestion struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Prompt       string    `json:"prompt"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
	Position     int       `json:"position"`
}

func toCachedAssessment(a *model.Assessment) cachedAssessment {
	c := cachedAssessment{
		ID:               a.ID,
		Title:            a.Title,
		TimeLimitSeconds: int64(a.TimeLimit / time.Second),
		PassThreshold:    a.PassThreshold,
		QuestionCount:    a.QuestionCount,
		Shuffle:          a.Shuffle,
		MaxAttempts:      a.MaxAttempts,
		AccessCode:       a.AccessCode,
		StartsAt:         a.StartsAt,
		EndsAt:           a.EndsAt,
		AllowReview:      a.AllowReview,
		ResultsVisible:   a.ResultsVisible,
		ShareCode:        a.ShareCode,
		UpdatedAt:        a.UpdatedAt,
	}
	if a.Cooldown != nil {
		secs := int64(*a.Cooldown / time.Second)
		c.CooldownSeconds = &secs
	}
	return c
}

func (c cachedAssessment) model() *model.Assessment {
	a := &model.Assessment{
		ID:             c.ID,
		Title:          c.Title,
		TimeLimit:      time.Duration(c.TimeLimitSeconds) * time.Second,
		PassThreshold:  c.PassThreshold,
		QuestionCount:  c.QuestionCount,
		Shuffle:        c.Shuffle,
		MaxAttempts:    c.MaxAttempts,
		AccessCode:     c.AccessCode,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		AllowReview:    c.AllowReview,
		ResultsVisible: c.ResultsVisible,
		ShareCode:      c.ShareCode,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.CooldownSeconds != nil {
		d := time.Duration(*c.CooldownSeconds) * time.Second
		a.Cooldown = &d
	}
	return a
}

// GetAssessment returns the current rules of an assessment.
func (s *ContentService) GetAssessment(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	key := config.CacheKey.AssessmentRulesKey(id.String())

	var cached cachedAssessment
	if s.cacheGet(ctx, key, &cached) {
		return cached.model(), nil
	}

	a, err := s.src.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAssessmentNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	s.cacheSet(ctx, key, toCachedAssessment(a))
	return a, nil
}

// GetAssessmentByShareCode resolves a public share code to its assessment.
func (s *ContentService) GetAssessmentByShareCode(ctx context.Context, code string) (*model.Assessment, error) {
	key := config.CacheKey.ShareCodeKey(code)

	var id uuid.UUID
	if s.cacheGet(ctx, key, &id) {
		return s.GetAssessment(ctx, id)
	}

	a, err := s.src.GetByShareCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrAssessmentNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("load assessment by share code: %w", err)
	}
	s.cacheSet(ctx, key, a.ID)
	s.cacheSet(ctx, config.CacheKey.AssessmentRulesKey(a.ID.String()), toCachedAssessment(a))
	return a, nil
}

// ListQuestions returns the authored question set, answer key included. Server side only.
func (s *ContentService) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	key := config.CacheKey.AssessmentQuestionsKey(assessmentID.String())

	var cached []cachedQuestion
	if s.cacheGet(ctx, key, &cached) {
		questions := make([]model.Question, len(cached))
		for i, c := range cached {
			questions[i] = model.Question{
				ID:           c.ID,
				AssessmentID: c.AssessmentID,
				Prompt:       c.Prompt,
				Options:      c.Options,
				CorrectIndex: c.CorrectIndex,
				Position:     c.Position,
			}
		}
		return questions, nil
	}

	questions, err := s.src.ListQuestions(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	toCache := make([]cachedQuestion, len(questions))
	for i, q := range questions {
		toCache[i] = cachedQuestion{
			ID:           q.ID,
			AssessmentID: q.AssessmentID,
			Prompt:       q.Prompt,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			Position:     q.Position,
		}
	}
	s.cacheSet(ctx, key, toCache)
	return questions, nil
}

// Refresh drops the cached rules and questions of an assessment.
func (s *ContentService) Refresh(ctx context.Context, assessmentID uuid.UUID) error {
	if s.rdb == nil {
		return nil
	}
	err := s.rdb.Del(ctx,
		config.CacheKey.AssessmentRulesKey(assessmentID.String()),
		config.CacheKey.AssessmentQuestionsKey(assessmentID.String()),
	).Err()
	if err != nil {
		return fmt.Errorf("refresh content cache: %w", err)
	}
	return nil
}

func (s *ContentService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("key", key).Msg("Content cache read failed, falling back to database")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Discarding malformed cache entry")
		return false
	}
	return true
}

func (s *ContentService) cacheSet(ctx context.Context, key string, v any) {
	if s.rdb == nil || s.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Content cache write failed")
	}
}

func questionIndex(questions []model.Question) map[uuid.UUID]model.Question {
	idx := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		idx[q.ID] = q
	}
	return idx
}

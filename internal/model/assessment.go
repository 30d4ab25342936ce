package model

import (
	"time"

	"github.com/google/uuid"
)

// Assessment is the authored exam definition. The engine only reads it.
type Assessment struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	TimeLimit      time.Duration  `json:"-"`
	PassThreshold  int            `json:"pass_threshold"`
	QuestionCount  int            `json:"question_count"`
	Shuffle        bool           `json:"shuffle"`
	MaxAttempts    *int           `json:"max_attempts,omitempty"`
	Cooldown       *time.Duration `json:"-"`
	AccessCode     *string        `json:"-"`
	StartsAt       *time.Time     `json:"starts_at,omitempty"`
	EndsAt         *time.Time     `json:"ends_at,omitempty"`
	AllowReview    bool           `json:"allow_review"`
	ResultsVisible bool           `json:"results_visible"`
	ShareCode      *string        `json:"-"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AccessCodeRequired reports whether starting requires an access code.
func (a *Assessment) AccessCodeRequired() bool {
	return a.AccessCode != nil && *a.AccessCode != ""
}

// Deadline returns the instant a session created at start expires.
func (a *Assessment) Deadline(start time.Time) time.Time {
	return start.Add(a.TimeLimit)
}

// AssessmentInfo is the candidate-facing view of an assessment.
// The access code itself is never exposed, only whether one is required.
type AssessmentInfo struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	TimeLimitSeconds   int64      `json:"time_limit_seconds"`
	QuestionCount      int        `json:"question_count"`
	PassThreshold      int        `json:"pass_threshold"`
	MaxAttempts        *int       `json:"max_attempts,omitempty"`
	CooldownSeconds    *int64     `json:"cooldown_seconds,omitempty"`
	StartsAt           *time.Time `json:"starts_at,omitempty"`
	EndsAt             *time.Time `json:"ends_at,omitempty"`
	AccessCodeRequired bool       `json:"access_code_required"`
}

// Info builds the public view of the assessment.
func (a *Assessment) Info() AssessmentInfo {
	info := AssessmentInfo{
		ID:                 a.ID,
		Title:              a.Title,
		TimeLimitSeconds:   int64(a.TimeLimit / time.Second),
		QuestionCount:      a.QuestionCount,
		PassThreshold:      a.PassThreshold,
		MaxAttempts:        a.MaxAttempts,
		StartsAt:           a.StartsAt,
		EndsAt:             a.EndsAt,
		AccessCodeRequired: a.AccessCodeRequired(),
	}
	if a.Cooldown != nil {
		secs := int64(*a.Cooldown / time.Second)
		info.CooldownSeconds = &secs
	}
	return info
}

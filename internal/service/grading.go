package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// GradeResult is the outcome of grading one session.
type GradeResult struct {
	Correct int
	Total   int
	Score   int
	Passed  bool
	// PerQuestion holds the correctness of every question in the sequence.
	PerQuestion map[uuid.UUID]bool
	// Missing lists sequence entries whose question no longer exists.
	Missing []uuid.UUID
}

// Grade scores a session against the current question bank and pass threshold.
// Unanswered and deleted questions count as incorrect and stay in the denominator.
// The caller guarantees a non-empty question sequence.
func Grade(s *model.Session, questions map[uuid.UUID]model.Question, passThreshold int) GradeResult {
	res := GradeResult{
		Total:       len(s.QuestionIDs),
		PerQuestion: make(map[uuid.UUID]bool, len(s.QuestionIDs)),
	}

	for _, qid := range s.QuestionIDs {
		q, ok := questions[qid]
		if !ok {
			res.Missing = append(res.Missing, qid)
			res.PerQuestion[qid] = false
			continue
		}
		a := s.Answers[qid]
		correct := a.Answered() && *a.SelectedIndex == q.CorrectIndex
		res.PerQuestion[qid] = correct
		if correct {
			res.Correct++
		}
	}

	res.Score = percentHalfUp(res.Correct, res.Total)
	res.Passed = res.Score >= passThreshold
	return res
}

// percentHalfUp returns round_half_up(100*part/whole) in integer arithmetic.
func percentHalfUp(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}

// applyGrade moves an in-progress session into a terminal status and records the grade.
// It refuses sessions that already carry a completion instant.
func applyGrade(s *model.Session, status model.SessionStatus, res GradeResult, at time.Time) error {
	if s.CompletedAt != nil || s.Status.IsTerminal() {
		return ErrAlreadyTerminal
	}

	s.Status = status
	s.CompletedAt = &at
	score, passed := res.Score, res.Passed
	s.Score = &score
	s.Passed = &passed

	if s.Answers == nil {
		s.Answers = make(map[uuid.UUID]*model.Answer, len(s.QuestionIDs))
	}
	for _, qid := range s.QuestionIDs {
		a := s.Answers[qid]
		if a == nil {
			a = &model.Answer{}
			s.Answers[qid] = a
		}
		correct := res.PerQuestion[qid]
		a.Correct = &correct
	}
	return nil
}

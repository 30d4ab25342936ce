package model

import (
	"github.com/google/uuid"
)

// MaxOptions bounds how many options a question may carry; option indexes
// run from 0 to MaxOptions-1.
const MaxOptions = 64

// Question is a single multiple-choice item from the question bank.
type Question struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	Prompt       string    `json:"prompt"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"-"`
	Position     int       `json:"position"`
}

// QuestionForCandidate is a question without its correct option, sent to candidates.
type QuestionForCandidate struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Options  []string  `json:"options"`
	Position int       `json:"position"`
}

// ForCandidate strips the answer key. position is the index inside the session sequence.
func (q *Question) ForCandidate(position int) QuestionForCandidate {
	return QuestionForCandidate{
		ID:       q.ID,
		Prompt:   q.Prompt,
		Options:  q.Options,
		Position: position,
	}
}

// Paper is the question sheet for one session, in its fixed order.
type Paper struct {
	SessionID uuid.UUID              `json:"session_id"`
	Title     string                 `json:"title"`
	Questions []QuestionForCandidate `json:"questions"`
}

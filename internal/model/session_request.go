package model

// StartSessionRequest is the payload for an authenticated candidate starting an attempt.
type StartSessionRequest struct {
	AccessCode string `json:"access_code" binding:"omitempty,max=64"`
}

// PublicStartRequest is the payload for an anonymous candidate starting via share code.
type PublicStartRequest struct {
	Email      string `json:"email" binding:"required,email,max=254"`
	AccessCode string `json:"access_code" binding:"omitempty,max=64"`
}

// SubmitAnswerRequest upserts a selection. A null selected_index clears the answer.
type SubmitAnswerRequest struct {
	QuestionID    string `json:"question_id" binding:"required,uuid"`
	SelectedIndex *int   `json:"selected_index" binding:"omitempty,option_index"`
}

// ViolationRequest reports a proctoring event.
type ViolationRequest struct {
	Kind string `json:"kind" binding:"required,violation_kind"`
}

// QuestionViewRequest reports that a question was shown to the candidate.
type QuestionViewRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

// AbandonSessionRequest is the admin payload for abandoning a session.
type AbandonSessionRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

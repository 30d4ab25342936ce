package model

import (
	"time"

	"github.com/google/uuid"
)

// IntegrityIncident is a rejected request that looked like tampering.
type IntegrityIncident struct {
	SessionID    uuid.UUID         `json:"session_id"`
	AssessmentID uuid.UUID         `json:"assessment_id"`
	CandidateKey string            `json:"candidate_key"`
	Kind         string            `json:"kind"`
	Detail       map[string]string `json:"detail,omitempty"`
	RecordedAt   time.Time         `json:"recorded_at"`
}

// CertificateRequest asks the certificate collaborator to issue a certificate for a passing session.
type CertificateRequest struct {
	SessionID   uuid.UUID `json:"session_id"`
	RequestedAt time.Time `json:"requested_at"`
	Attempt     int       `json:"attempt"`
}

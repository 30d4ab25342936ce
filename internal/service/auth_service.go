package service

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
	"golang.org/x/crypto/blake2b"
)

// Common auth errors.
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrMissingCandidate = errors.New("token carries no candidate identity")
)

// TokenType distinguishes candidate, public and admin tokens.
type TokenType string

const (
	TokenTypeCandidate TokenType = "candidate"
	TokenTypePublic    TokenType = "public"
	TokenTypeAdmin     TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType          TokenType `json:"token_type"`
	UserID             string    `json:"user_id,omitempty"`
	ContactFingerprint string    `json:"contact_fingerprint,omitempty"` // Public only
	AssessmentID       string    `json:"assessment_id,omitempty"`       // Public only
	Permissions        []string  `json:"permissions,omitempty"`         // Admin only
}

// Candidate returns the exam-taker identity carried by a candidate or public token.
func (c *Claims) Candidate() (model.Candidate, error) {
	switch c.TokenType {
	case TokenTypeCandidate:
		if c.UserID != "" {
			return model.UserCandidate(c.UserID), nil
		}
	case TokenTypePublic:
		if c.ContactFingerprint != "" {
			return model.ContactCandidate(c.ContactFingerprint), nil
		}
	}
	return model.Candidate{}, ErrMissingCandidate
}

// AuthService issues and validates JWTs and derives contact fingerprints.
type AuthService struct {
	cfg            *config.Config
	fingerprintKey [32]byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		cfg:            cfg,
		fingerprintKey: blake2b.Sum256([]byte(cfg.FingerprintSecret)),
	}
}

// Fingerprint derives the anonymous candidate key of a contact email.
// Emails are compared case-insensitively and without surrounding space.
func (s *AuthService) Fingerprint(email string) (string, error) {
	return keyedFingerprint(s.fingerprintKey[:], email)
}

func keyedFingerprint(key []byte, email string) (string, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("fingerprint hash: %w", err)
	}
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GenerateCandidateToken creates a JWT for an authenticated candidate.
func (s *AuthService) GenerateCandidateToken(userID string) (string, error) {
	return s.sign(Claims{TokenType: TokenTypeCandidate, UserID: userID}, userID)
}

// GeneratePublicToken creates a JWT for an anonymous candidate, scoped to one assessment.
func (s *AuthService) GeneratePublicToken(fingerprint string, assessmentID uuid.UUID) (string, error) {
	return s.sign(Claims{
		TokenType:          TokenTypePublic,
		ContactFingerprint: fingerprint,
		AssessmentID:       assessmentID.String(),
	}, "contact:"+fingerprint)
}

// GenerateAdminToken creates a JWT for an admin with permissions embedded.
func (s *AuthService) GenerateAdminToken(userID string, permissions []string) (string, error) {
	return s.sign(Claims{TokenType: TokenTypeAdmin, UserID: userID, Permissions: permissions}, userID)
}

func (s *AuthService) sign(claims Claims, subject string) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

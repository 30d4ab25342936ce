package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden           ErrCode = "FORBIDDEN"
	ErrPermissionDenied    ErrCode = "PERMISSION_DENIED"
	ErrCandidateAccessOnly ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrAdminAccessOnly     ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Eligibility ───────────────────────────────────────────────────
	ErrOutsideWindow     ErrCode = "OUTSIDE_WINDOW"
	ErrBadAccessCode     ErrCode = "BAD_ACCESS_CODE"
	ErrAttemptsExhausted ErrCode = "ATTEMPTS_EXHAUSTED"
	ErrCooldownActive    ErrCode = "COOLDOWN_ACTIVE"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionExpired      ErrCode = "SESSION_EXPIRED"
	ErrAlreadyTerminal     ErrCode = "ALREADY_TERMINAL"
	ErrNotTerminal         ErrCode = "NOT_TERMINAL"
	ErrNoQuestions         ErrCode = "NO_QUESTIONS"
	ErrIntegrityViolation  ErrCode = "INTEGRITY_VIOLATION"
	ErrConcurrentOperation ErrCode = "CONCURRENT_MODIFICATION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrCandidateAccessOnly:
		return "This resource is restricted to candidates."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Eligibility ───────────────────────────────────────────────────
	case ErrOutsideWindow:
		return "This assessment is not open at this time."
	case ErrBadAccessCode:
		return "The access code is incorrect."
	case ErrAttemptsExhausted:
		return "You have used all attempts for this assessment."
	case ErrCooldownActive:
		return "You must wait before retaking this assessment."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionExpired:
		return "The time limit for this session has elapsed."
	case ErrAlreadyTerminal:
		return "This session has already ended."
	case ErrNotTerminal:
		return "This session is still in progress."
	case ErrNoQuestions:
		return "This assessment has no questions."
	case ErrIntegrityViolation:
		return "The request does not match this session."
	case ErrConcurrentOperation:
		return "The session is being updated elsewhere. Please retry."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrServiceUnavailable:
		return "A required service is unavailable."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}

package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAuthorAccessOnly  ErrCode = "AUTHOR_ACCESS_ONLY"
	ErrNotAttemptOwner   ErrCode = "NOT_ATTEMPT_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Mock-test specific ────────────────────────────────────────────
	ErrTestNotFound        ErrCode = "TEST_NOT_FOUND"
	ErrAttemptNotFound     ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptCompleted    ErrCode = "ATTEMPT_ALREADY_COMPLETED"
	ErrAttemptInProgress   ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrMarksExceedTotal    ErrCode = "MARKS_EXCEED_TOTAL"
	ErrInvalidReference    ErrCode = "INVALID_REFERENCE"
	ErrUnknownStreamAction ErrCode = "UNKNOWN_ACTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAuthorAccessOnly:
		return "This resource is restricted to professors and staff."
	case ErrNotAttemptOwner:
		return "This attempt belongs to another user."

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
	case ErrConflict:
		return "Resource already exists."

	// ─── Mock-test specific ────────────────────────────────────────────
	case ErrTestNotFound:
		return "Mock test not found or not active."
	case ErrAttemptNotFound:
		return "Test attempt not found."
	case ErrAttemptCompleted:
		return "This attempt has already been submitted."
	case ErrAttemptInProgress:
		return "This attempt has not been submitted yet."
	case ErrMarksExceedTotal:
		return "Question marks would exceed the test's total marks."
	case ErrInvalidReference:
		return "A referenced subject or topic does not exist."
	case ErrUnknownStreamAction:
		return "Unknown stream action."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}

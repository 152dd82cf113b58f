package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAccountInactive    ErrCode = "ACCOUNT_INACTIVE"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"
	ErrNotOwner         ErrCode = "NOT_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Review workflow ───────────────────────────────────────────────
	ErrInvalidStatus    ErrCode = "INVALID_STATUS"
	ErrNoteRequired     ErrCode = "REVIEW_NOTE_REQUIRED"
	ErrInvalidDifficult ErrCode = "DIFFICULTY_OUT_OF_RANGE"
	ErrInvalidAnswer    ErrCode = "INVALID_CORRECT_ANSWER"
	ErrInvalidUsage     ErrCode = "INVALID_USAGE_TYPE"

	// ─── Registration ──────────────────────────────────────────────────
	ErrRegTokenInvalid ErrCode = "REGISTRATION_TOKEN_INVALID"
	ErrUsernameTaken   ErrCode = "USERNAME_TAKEN"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"
	ErrInvalidLicense  ErrCode = "INVALID_LICENSE"
	ErrQuotaExceeded   ErrCode = "CONTRIBUTION_QUOTA_EXCEEDED"
	ErrRemoteFetch     ErrCode = "REMOTE_FETCH_FAILED"

	// ─── Import ────────────────────────────────────────────────────────
	ErrCSVInvalid ErrCode = "CSV_INVALID"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal    ErrCode = "INTERNAL_ERROR"
	ErrUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrAccountInactive:
		return "This account has been deactivated."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrNotOwner:
		return "Only the uploader or a reviewer may modify this item."

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

	// ─── Review workflow ───────────────────────────────────────────────
	case ErrInvalidStatus:
		return "The requested status is not a valid review decision."
	case ErrNoteRequired:
		return "Review notes are required for rejected or returned items."
	case ErrInvalidDifficult:
		return "Difficulty rating must be between 1 and 5."
	case ErrInvalidAnswer:
		return "The correct answer must match a provided choice."
	case ErrInvalidUsage:
		return "Usage type must be question or explanation."

	// ─── Registration ──────────────────────────────────────────────────
	case ErrRegTokenInvalid:
		return "The registration token is invalid, used, or expired."
	case ErrUsernameTaken:
		return "That username or email is already in use."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "The file type is not supported."
	case ErrFileTooLarge:
		return "The file size exceeds the limit."
	case ErrInvalidLicense:
		return "The image license is not recognized."
	case ErrQuotaExceeded:
		return "You have reached your contribution quota."
	case ErrRemoteFetch:
		return "The remote image could not be fetched."

	// ─── Import ────────────────────────────────────────────────────────
	case ErrCSVInvalid:
		return "The CSV file is missing required columns or data."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	case ErrUnavailable:
		return "The service is temporarily unavailable."
	default:
		return "An unexpected error occurred."
	}
}

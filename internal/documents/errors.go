package documents

import "errors"

var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyProcessing = errors.New("document is already processing")
	ErrFileMissing       = errors.New("original file is missing from storage")
)

// Stable error codes returned in API error bodies.
const (
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodeTooManyFiles      = "TOO_MANY_FILES"
	CodeInvalidFileType   = "INVALID_FILE_TYPE"
	CodeNoFile            = "NO_FILE"
	CodeNoFiles           = "NO_FILES"
	CodeMissingUserID     = "MISSING_USER_ID"
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyProcessing = "ALREADY_PROCESSING"
	CodeFileMissing       = "FILE_MISSING"
	CodeUploadError       = "UPLOAD_ERROR"
	CodeInternalError     = "INTERNAL_ERROR"
)

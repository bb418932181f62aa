package verification

import "errors"

var (
	// ErrNoPendingRequest is returned when no code was requested for the key
	// or the request expired.
	ErrNoPendingRequest = errors.New("no pending verification request")
	// ErrVerificationRejected is returned for a wrong code. The request stays
	// pending so the associate can try again.
	ErrVerificationRejected = errors.New("verification code rejected")
	// ErrNotVerified is returned when issuing before a successful verification.
	ErrNotVerified = errors.New("identity not verified")
	// ErrGenerationFailed wraps certificate generation failures.
	ErrGenerationFailed = errors.New("certificate generation failed")
	// ErrSendFailed wraps delivery failures of the code.
	ErrSendFailed = errors.New("verification code could not be sent")
	// ErrUnknownContact is returned by a Directory without a contact for the cedula.
	ErrUnknownContact = errors.New("no contact registered")
	// ErrRecordNotFound is returned by a RecordStore for missing or expired keys.
	ErrRecordNotFound = errors.New("verification record not found")
)

// Tool error codes.
const (
	CodeNoPendingRequest     = "NO_PENDING_REQUEST"
	CodeVerificationRejected = "VERIFICATION_REJECTED"
	CodeNotVerified          = "NOT_VERIFIED"
	CodeGenerationFailed     = "GENERATION_FAILED"
	CodeSendFailed           = "SEND_FAILED"
)

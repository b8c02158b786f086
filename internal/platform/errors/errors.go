// Package errors defines the domain error type shared by the passkey core.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodePlatformUnsupported indicates the platform exposes no secure
	// public-key credential API.
	CodePlatformUnsupported Code = "PLATFORM_UNSUPPORTED"
	// CodeNoLocalCredential indicates no credential pointer is stored locally.
	CodeNoLocalCredential Code = "NO_LOCAL_CREDENTIAL"
	// CodeCeremonyFailed indicates a platform ceremony failure. User
	// cancellation, timeout, and platform errors are not distinguished.
	CodeCeremonyFailed Code = "CEREMONY_FAILED"
	// CodeMalformedEncoding indicates input that is not valid base64url or a
	// binary structure that cannot be parsed.
	CodeMalformedEncoding Code = "MALFORMED_ENCODING"
	// CodeUnknownCredential indicates the claimed credential is not registered.
	CodeUnknownCredential Code = "UNKNOWN_CREDENTIAL"
	// CodeSignatureInvalid indicates the assertion does not verify against the
	// stored public key.
	CodeSignatureInvalid Code = "SIGNATURE_INVALID"
	// CodeChallengeMismatch indicates the client data does not echo the issued
	// challenge or carries unexpected origin/type fields.
	CodeChallengeMismatch Code = "CHALLENGE_MISMATCH"
	// CodeReplayDetected indicates a non-increasing authenticator counter.
	CodeReplayDetected Code = "REPLAY_DETECTED"
	// CodeIdentityCreationFailed indicates the identity service rejected the
	// account creation.
	CodeIdentityCreationFailed Code = "IDENTITY_CREATION_FAILED"
	// CodeCredentialPersistFailed indicates the credential store rejected the
	// insert, typically a credential id collision.
	CodeCredentialPersistFailed Code = "CREDENTIAL_PERSIST_FAILED"
	// CodeInvalidInput indicates missing or malformed request fields.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeInternal indicates an unexpected internal failure.
	CodeInternal Code = "INTERNAL"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Internal message for logs
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

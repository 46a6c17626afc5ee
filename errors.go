package goAuthFlow

import (
	"errors"
	"fmt"
)

var (
	// ErrResendCooldown is returned by [Controller.Resend] while the resend
	// countdown is still running. The state is left untouched.
	ErrResendCooldown = errors.New("resend cooldown active")
	// ErrStaleResponse is returned when a remote call resolves after the flow
	// was reset. Its result has been discarded.
	ErrStaleResponse = errors.New("stale response discarded")
	// ErrRequestInFlight is returned when a command is issued while another
	// remote call of the same flow is still outstanding.
	ErrRequestInFlight = errors.New("request already in flight")
	// ErrWrongStep is returned when a command is not available in the current step.
	ErrWrongStep = errors.New("command not available in current step")
	// ErrSessionPersist wraps failures of the [SessionPersister].
	ErrSessionPersist = errors.New("session persistence failed")
	// ErrInvalidConfig wraps every [Config.Validate] failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrEngineNotReady is returned by a nil or unbuilt [Engine].
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrMissingRemote is returned by [Builder.Build] without a [Remote].
	ErrMissingRemote = errors.New("remote not configured")
	// ErrMissingPersister is returned by [Builder.Build] without a [SessionPersister].
	ErrMissingPersister = errors.New("session persister not configured")
)

// ErrorKind separates local validation failures from service-reported and
// transport failures.
type ErrorKind uint8

const (
	// KindValidation failures are detected locally and never reach the network.
	KindValidation ErrorKind = iota + 1
	// KindService failures carry a code reported by the remote service.
	KindService
	// KindNetwork failures mean no usable response was received.
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validationError"
	case KindService:
		return "serviceError"
	case KindNetwork:
		return "networkError"
	default:
		return "unknown"
	}
}

// Code identifies an error condition on the wire and in [AuthError].
type Code string

const (
	CodeInvalidCredentials Code = "invalidCredentials"
	CodeInvalidOTP         Code = "invalidOtp"
	CodeExpiredOTP         Code = "expiredOtp"
	CodeNetworkError       Code = "networkError"
	CodeTooManyAttempts    Code = "tooManyAttempts"
	CodeUnknown            Code = "unknown"

	CodeInvalidIdentifier Code = "invalidIdentifier"
	CodeIncompleteOTP     Code = "incompleteOtp"
	CodeInvalidPassword   Code = "invalidPassword"
	CodePasswordPolicy    Code = "passwordPolicy"
	CodePasswordMismatch  Code = "passwordMismatch"
	CodeAccountExists     Code = "accountExists"
	CodeRateLimited       Code = "rateLimited"
)

var defaultMessages = map[Code]string{
	CodeInvalidCredentials: "Invalid email or password",
	CodeInvalidOTP:         "Invalid OTP. Please try again.",
	CodeExpiredOTP:         "OTP has expired. Please request a new one.",
	CodeNetworkError:       "Network error. Please try again.",
	CodeTooManyAttempts:    "Too many attempts. Please try again later.",
	CodeUnknown:            "Something went wrong. Please try again.",
	CodeInvalidIdentifier:  "Please enter a valid email or phone number",
	CodeIncompleteOTP:      "Please enter the complete code",
	CodeInvalidPassword:    "Password must be at least 8 characters",
	CodePasswordPolicy:     "Password does not meet the requirements",
	CodePasswordMismatch:   "Passwords don't match",
	CodeAccountExists:      "An account with this email or phone already exists",
	CodeRateLimited:        "Too many requests. Please try again later.",
}

// DefaultMessage returns the user-facing message for code.
func DefaultMessage(code Code) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return defaultMessages[CodeUnknown]
}

// AuthError is the normalized failure shape returned by every command.
// Field names the input the error belongs to, when there is one.
type AuthError struct {
	Kind    ErrorKind `json:"-"`
	Code    Code      `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Err     error     `json:"-"`
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError builds a local, pre-network failure.
func ValidationError(code Code, field, message string) *AuthError {
	if message == "" {
		message = DefaultMessage(code)
	}
	return &AuthError{Kind: KindValidation, Code: code, Field: field, Message: message}
}

// ServiceError builds a failure reported by the remote service. An empty
// message falls back to the default text for code.
func ServiceError(code Code, message, field string) *AuthError {
	if code == "" {
		code = CodeUnknown
	}
	if message == "" {
		message = DefaultMessage(code)
	}
	return &AuthError{Kind: KindService, Code: code, Message: message, Field: field}
}

// NetworkError wraps a transport failure. The message is always the generic
// retry text.
func NetworkError(err error) *AuthError {
	return &AuthError{
		Kind:    KindNetwork,
		Code:    CodeNetworkError,
		Message: DefaultMessage(CodeNetworkError),
		Err:     err,
	}
}

// NormalizeError converts any error returned by a [Remote] into an
// *AuthError. Errors that are already normalized pass through; anything else,
// including context cancellation, is treated as a transport failure.
func NormalizeError(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.Kind == 0 {
			authErr.Kind = KindService
		}
		if authErr.Message == "" {
			authErr.Message = DefaultMessage(authErr.Code)
		}
		return authErr
	}
	return NetworkError(err)
}

// IsCode reports whether err normalizes to code.
func IsCode(err error, code Code) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Code == code
}

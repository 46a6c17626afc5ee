package goAuthFlow

import "context"

// OTPRequest asks the remote service to send a one-time code to Identifier.
// Purpose tells the service which journey the code belongs to.
type OTPRequest struct {
	Identifier string  `json:"identifier"`
	Method     Method  `json:"-"`
	Region     string  `json:"region,omitempty"`
	Purpose    Variant `json:"-"`
}

// OTPChallenge is the successful result of an OTP request. Both values are
// opaque and must be sent back unchanged with the code.
type OTPChallenge struct {
	VerificationID string `json:"verificationId"`
	AuthToken      string `json:"authToken"`
}

// OTPVerification submits a code for an outstanding challenge.
type OTPVerification struct {
	Identifier     string `json:"identifier"`
	OTP            string `json:"otp"`
	VerificationID string `json:"verificationId"`
	AuthToken      string `json:"authToken"`
}

// Credentials carries an identifier and a password for login or account creation.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Remote is the verification and authentication service the controller talks
// to. Implementations should return *AuthError for service-reported failures;
// any other error is treated as a network failure.
type Remote interface {
	RequestOTP(ctx context.Context, req OTPRequest) (OTPChallenge, error)
	// VerifyOTP returns the session token. It may be empty when the
	// verification only unlocks the password step (signup by email).
	VerifyOTP(ctx context.Context, req OTPVerification) (string, error)
	LoginWithPassword(ctx context.Context, creds Credentials) (string, error)
	CreateAccount(ctx context.Context, creds Credentials) (string, error)
}

// SessionPersister stores the session token issued at the end of a flow,
// typically as an HTTP-only cookie.
type SessionPersister interface {
	PersistSession(ctx context.Context, token string) error
}

// SessionPersisterFunc adapts a function to [SessionPersister].
type SessionPersisterFunc func(ctx context.Context, token string) error

// PersistSession calls f.
func (f SessionPersisterFunc) PersistSession(ctx context.Context, token string) error {
	return f(ctx, token)
}

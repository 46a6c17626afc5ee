package goAuthFlow

import (
	"github.com/MrEthical07/goAuthFlow/identifier"
	"github.com/MrEthical07/goAuthFlow/password"
)

// Step is the position of a flow inside the state machine.
type Step uint8

const (
	// StepIdentifier collects the email or phone number. It is the initial step.
	StepIdentifier Step = iota
	// StepOtp waits for the one-time code sent to the identifier.
	StepOtp
	// StepPassword collects an existing password (login) or a new one (signup).
	StepPassword
)

func (s Step) String() string {
	switch s {
	case StepIdentifier:
		return "identifier"
	case StepOtp:
		return "otp"
	case StepPassword:
		return "password"
	default:
		return "unknown"
	}
}

// Method is the identifier channel detected by the classifier.
type Method uint8

const (
	// MethodUnknown is the zero value held before an identifier is accepted.
	MethodUnknown Method = iota
	// MethodEmail marks an email identifier.
	MethodEmail
	// MethodPhone marks a phone identifier.
	MethodPhone
)

func (m Method) String() string {
	switch m {
	case MethodEmail:
		return "email"
	case MethodPhone:
		return "phone"
	default:
		return "unknown"
	}
}

// ParseMethod is the inverse of Method.String.
func ParseMethod(s string) (Method, bool) {
	switch s {
	case "email":
		return MethodEmail, true
	case "phone":
		return MethodPhone, true
	default:
		return MethodUnknown, false
	}
}

func methodFromKind(k identifier.Kind) Method {
	switch k {
	case identifier.KindEmail:
		return MethodEmail
	case identifier.KindPhone:
		return MethodPhone
	default:
		return MethodUnknown
	}
}

// Variant selects the login or signup journey.
type Variant uint8

const (
	// VariantLogin authenticates an existing account.
	VariantLogin Variant = iota
	// VariantSignup verifies ownership of an identifier and creates an account.
	VariantSignup
)

func (v Variant) String() string {
	if v == VariantSignup {
		return "signup"
	}
	return "login"
}

// ParseVariant is the inverse of Variant.String.
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "login":
		return VariantLogin, true
	case "signup":
		return VariantSignup, true
	default:
		return VariantLogin, false
	}
}

// State is the authentication state owned by one [Controller]. It carries no
// presentation data: countdowns, loading flags and input buffers live with the
// front end or in [Cooldown].
type State struct {
	Variant        Variant
	Step           Step
	Method         Method
	Identifier     string
	VerificationID string
	AuthToken      string
}

// InitialState returns the state a flow of the given variant starts in and
// returns to after a reset or a completed authentication.
func InitialState(v Variant) State {
	return State{Variant: v, Step: StepIdentifier}
}

// IsInitial reports whether s equals InitialState(s.Variant).
func (s State) IsInitial() bool {
	return s == InitialState(s.Variant)
}

// HasChallenge reports whether an OTP challenge is attached to the state.
func (s State) HasChallenge() bool {
	return s.VerificationID != "" && s.AuthToken != ""
}

// requiresOTP reports whether submitting an identifier with method m must
// request an OTP first. Only login by email goes straight to the password step.
func requiresOTP(v Variant, m Method) bool {
	return !(v == VariantLogin && m == MethodEmail)
}

// PasswordRequirements is the creation-time checklist reported to front ends.
type PasswordRequirements = password.Requirements

// Result is returned by every [Controller] command.
type Result struct {
	// State is the controller state after the command.
	State State
	// Completed is true when the command finished the flow and the session
	// token was handed to the [SessionPersister]. State is then initial.
	Completed bool
	// Requirements carries the password checklist for signup password
	// submissions, including rejected ones.
	Requirements *PasswordRequirements
}

package goAuthFlow

import "errors"

// ErrInvalidTransition is returned by [Transition] when an event is not
// accepted in the current step.
var ErrInvalidTransition = errors.New("invalid flow transition")

// Event is an input to [Transition]. The set is closed: only the types in
// this file implement it.
type Event interface {
	isEvent()
}

// OtpIssued records a successful OTP request. In the identifier step it moves
// the flow to the OTP step; in the OTP step (resend) it replaces the
// verification artifacts for the same identifier.
type OtpIssued struct {
	Identifier     string
	Method         Method
	VerificationID string
	AuthToken      string
}

// PasswordRequested moves a login-by-email flow straight to the password step.
type PasswordRequested struct {
	Identifier string
	Method     Method
}

// OtpVerified records an accepted code. Signup by email continues to the
// password step; every other combination is terminal.
type OtpVerified struct{}

// Authenticated records a successful login or account creation from the
// password step. It is terminal.
type Authenticated struct{}

// ResetRequested discards the flow. It is accepted in every step.
type ResetRequested struct{}

func (OtpIssued) isEvent()         {}
func (PasswordRequested) isEvent() {}
func (OtpVerified) isEvent()       {}
func (Authenticated) isEvent()     {}
func (ResetRequested) isEvent()    {}

// Transition is the pure state function of the flow. It never performs I/O;
// on a rejected event it returns s unchanged with [ErrInvalidTransition].
func Transition(s State, e Event) (State, error) {
	switch ev := e.(type) {
	case ResetRequested:
		return InitialState(s.Variant), nil

	case OtpIssued:
		if ev.VerificationID == "" || ev.AuthToken == "" || ev.Method == MethodUnknown {
			return s, ErrInvalidTransition
		}
		switch s.Step {
		case StepIdentifier:
			if !requiresOTP(s.Variant, ev.Method) {
				return s, ErrInvalidTransition
			}
		case StepOtp:
			if ev.Identifier != s.Identifier || ev.Method != s.Method {
				return s, ErrInvalidTransition
			}
		default:
			return s, ErrInvalidTransition
		}
		return State{
			Variant:        s.Variant,
			Step:           StepOtp,
			Method:         ev.Method,
			Identifier:     ev.Identifier,
			VerificationID: ev.VerificationID,
			AuthToken:      ev.AuthToken,
		}, nil

	case PasswordRequested:
		if s.Step != StepIdentifier || ev.Method == MethodUnknown || requiresOTP(s.Variant, ev.Method) {
			return s, ErrInvalidTransition
		}
		return State{
			Variant:    s.Variant,
			Step:       StepPassword,
			Method:     ev.Method,
			Identifier: ev.Identifier,
		}, nil

	case OtpVerified:
		if s.Step != StepOtp {
			return s, ErrInvalidTransition
		}
		if s.Variant == VariantSignup && s.Method == MethodEmail {
			return State{
				Variant:    s.Variant,
				Step:       StepPassword,
				Method:     s.Method,
				Identifier: s.Identifier,
			}, nil
		}
		return InitialState(s.Variant), nil

	case Authenticated:
		if s.Step != StepPassword {
			return s, ErrInvalidTransition
		}
		return InitialState(s.Variant), nil

	default:
		return s, ErrInvalidTransition
	}
}

// completes reports whether applying e in s ends the flow.
func completes(s State, e Event) bool {
	switch e.(type) {
	case Authenticated:
		return s.Step == StepPassword
	case OtpVerified:
		return s.Step == StepOtp && !(s.Variant == VariantSignup && s.Method == MethodEmail)
	default:
		return false
	}
}

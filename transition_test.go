package goAuthFlow

import (
	"errors"
	"testing"
)

func issued(identifier string, m Method) OtpIssued {
	return OtpIssued{Identifier: identifier, Method: m, VerificationID: "v1", AuthToken: "t1"}
}

func TestTransitionPaths(t *testing.T) {
	tests := []struct {
		name   string
		start  State
		events []Event
		want   []Step
	}{
		{
			name:   "login email",
			start:  InitialState(VariantLogin),
			events: []Event{PasswordRequested{Identifier: "a@b.co", Method: MethodEmail}, Authenticated{}},
			want:   []Step{StepPassword, StepIdentifier},
		},
		{
			name:   "login phone",
			start:  InitialState(VariantLogin),
			events: []Event{issued("9876543210", MethodPhone), OtpVerified{}},
			want:   []Step{StepOtp, StepIdentifier},
		},
		{
			name:   "signup email",
			start:  InitialState(VariantSignup),
			events: []Event{issued("a@b.co", MethodEmail), OtpVerified{}, Authenticated{}},
			want:   []Step{StepOtp, StepPassword, StepIdentifier},
		},
		{
			name:   "signup phone",
			start:  InitialState(VariantSignup),
			events: []Event{issued("9876543210", MethodPhone), OtpVerified{}},
			want:   []Step{StepOtp, StepIdentifier},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.start
			for i, e := range tt.events {
				next, err := Transition(s, e)
				if err != nil {
					t.Fatalf("event %d (%T): %v", i, e, err)
				}
				if next.Step != tt.want[i] {
					t.Fatalf("event %d (%T): expected step %s, got %s", i, e, tt.want[i], next.Step)
				}
				s = next
			}
			if !s.IsInitial() || s.Variant != tt.start.Variant {
				t.Fatalf("expected initial %s state at the end, got %+v", tt.start.Variant, s)
			}
		})
	}
}

func TestTransitionOtpIssuedCarriesChallenge(t *testing.T) {
	s, err := Transition(InitialState(VariantLogin), issued("9876543210", MethodPhone))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.VerificationID != "v1" || s.AuthToken != "t1" || s.Identifier != "9876543210" || s.Method != MethodPhone {
		t.Fatalf("challenge not recorded: %+v", s)
	}
}

func TestTransitionResendReplacesChallenge(t *testing.T) {
	s, _ := Transition(InitialState(VariantSignup), issued("a@b.co", MethodEmail))

	next, err := Transition(s, OtpIssued{Identifier: "a@b.co", Method: MethodEmail, VerificationID: "v2", AuthToken: "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Step != StepOtp || next.VerificationID != "v2" || next.AuthToken != "t2" {
		t.Fatalf("expected replaced challenge, got %+v", next)
	}

	if _, err := Transition(s, issued("other@b.co", MethodEmail)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected resend for another identifier to be rejected, got %v", err)
	}
}

func TestTransitionSignupEmailPasswordStepDropsChallenge(t *testing.T) {
	s, _ := Transition(InitialState(VariantSignup), issued("a@b.co", MethodEmail))
	s, err := Transition(s, OtpVerified{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.HasChallenge() {
		t.Fatalf("expected challenge cleared in password step, got %+v", s)
	}
	if s.Identifier != "a@b.co" {
		t.Fatalf("expected identifier kept, got %q", s.Identifier)
	}
}

func TestTransitionRejectsInvalidEvents(t *testing.T) {
	login := InitialState(VariantLogin)
	signup := InitialState(VariantSignup)
	otp, _ := Transition(login, issued("9876543210", MethodPhone))

	tests := []struct {
		name string
		s    State
		e    Event
	}{
		{"login email cannot request otp", login, issued("a@b.co", MethodEmail)},
		{"signup email cannot skip otp", signup, PasswordRequested{Identifier: "a@b.co", Method: MethodEmail}},
		{"login phone cannot skip otp", login, PasswordRequested{Identifier: "9876543210", Method: MethodPhone}},
		{"verify outside otp step", login, OtpVerified{}},
		{"authenticate outside password step", otp, Authenticated{}},
		{"otp issued without challenge", login, OtpIssued{Identifier: "9876543210", Method: MethodPhone}},
		{"unknown method", login, PasswordRequested{Identifier: "x", Method: MethodUnknown}},
		{"nil event", login, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.s, tt.e)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			if next != tt.s {
				t.Fatalf("expected state unchanged, got %+v", next)
			}
		})
	}
}

func TestTransitionResetFromEveryStep(t *testing.T) {
	otp, _ := Transition(InitialState(VariantSignup), issued("a@b.co", MethodEmail))
	pw, _ := Transition(otp, OtpVerified{})

	for _, s := range []State{InitialState(VariantSignup), otp, pw} {
		next, err := Transition(s, ResetRequested{})
		if err != nil {
			t.Fatalf("reset from %s: %v", s.Step, err)
		}
		if next != InitialState(VariantSignup) {
			t.Fatalf("reset from %s: expected initial state, got %+v", s.Step, next)
		}
	}
}

func TestCompletes(t *testing.T) {
	otpLogin, _ := Transition(InitialState(VariantLogin), issued("9876543210", MethodPhone))
	otpSignupEmail, _ := Transition(InitialState(VariantSignup), issued("a@b.co", MethodEmail))
	pw, _ := Transition(otpSignupEmail, OtpVerified{})

	if !completes(otpLogin, OtpVerified{}) {
		t.Fatalf("expected login phone verification to complete")
	}
	if completes(otpSignupEmail, OtpVerified{}) {
		t.Fatalf("expected signup email verification to continue")
	}
	if !completes(pw, Authenticated{}) {
		t.Fatalf("expected authentication to complete")
	}
	if completes(pw, ResetRequested{}) {
		t.Fatalf("reset must not complete")
	}
}

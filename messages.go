package goAuthFlow

import "fmt"

// GoogleOAuthPath is where front ends send the browser to start Google sign-in.
const GoogleOAuthPath = "/api/auth/google"

// Copy is the heading shown for one step of a flow.
type Copy struct {
	Title       string
	Description string
}

// MessagesFor returns the heading for s. The identifier is interpolated into
// the OTP and password descriptions.
func MessagesFor(s State, otpLength int) Copy {
	switch s.Step {
	case StepOtp:
		channel := "Mobile"
		if s.Method == MethodEmail {
			channel = "Email"
		}
		return Copy{
			Title:       fmt.Sprintf("Enter the %d-digit OTP sent to your %s", otpLength, channel),
			Description: fmt.Sprintf("We've sent %d-digit OTP to %s.", otpLength, s.Identifier),
		}
	case StepPassword:
		if s.Variant == VariantSignup {
			return Copy{
				Title:       "Create your password",
				Description: fmt.Sprintf("Choose a password for the account linked to %s", s.Identifier),
			}
		}
		return Copy{
			Title:       "Enter your password",
			Description: fmt.Sprintf("Enter the password for the account linked to this %s", s.Identifier),
		}
	default:
		if s.Variant == VariantSignup {
			return Copy{
				Title:       "Create Account",
				Description: "Sign up to start managing your sessions and payments.",
			}
		}
		return Copy{
			Title:       "Welcome Back",
			Description: "Log in to manage your sessions, attendance, and payments.",
		}
	}
}

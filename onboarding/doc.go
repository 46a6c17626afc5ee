// Package onboarding models the post-signup onboarding wizard: four fixed
// steps, the business model choice of the first step, and the full-name rule
// of the details step.
//
// It is pure state with no I/O. Rendering belongs to the front end.
package onboarding

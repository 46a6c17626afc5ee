package onboarding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrStepOutOfRange is returned by [Stepper.GoTo] for a step outside 1..len(Steps).
	ErrStepOutOfRange = errors.New("onboarding step out of range")
	// ErrNameTooShort and ErrNameTooLong are returned by [ValidateFullName].
	ErrNameTooShort = errors.New("name must be at least 2 characters")
	ErrNameTooLong  = errors.New("name is too long")
)

const (
	MinNameLength = 2
	MaxNameLength = 100
)

// Status is the display state of a step relative to the current one.
type Status uint8

const (
	StatusUpcoming Status = iota
	StatusActive
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return "upcoming"
	}
}

// Stepper tracks progress through [Steps]. The zero value is not usable;
// use [NewStepper]. A Stepper is not safe for concurrent use.
type Stepper struct {
	current int
}

// NewStepper starts at step 1.
func NewStepper() *Stepper {
	return &Stepper{current: 1}
}

// Current returns the 1-based active step.
func (s *Stepper) Current() int {
	return s.current
}

// Step returns the copy of the active step.
func (s *Stepper) Step() Step {
	return Steps[s.current-1]
}

// Done reports whether the last step is active.
func (s *Stepper) Done() bool {
	return s.current == len(Steps)
}

// Next advances one step and reports whether it moved.
func (s *Stepper) Next() bool {
	if s.current >= len(Steps) {
		return false
	}
	s.current++
	return true
}

// Back returns to the previous step and reports whether it moved.
func (s *Stepper) Back() bool {
	if s.current <= 1 {
		return false
	}
	s.current--
	return true
}

func (s *Stepper) GoTo(step int) error {
	if step < 1 || step > len(Steps) {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, step)
	}
	s.current = step
	return nil
}

// Status reports how step relates to the active step.
func (s *Stepper) Status(step int) Status {
	switch {
	case step == s.current:
		return StatusActive
	case step < s.current:
		return StatusCompleted
	default:
		return StatusUpcoming
	}
}

// ValidateFullName checks the trimmed name is 2 to 100 characters long.
func ValidateFullName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength {
		return ErrNameTooShort
	}
	if n > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

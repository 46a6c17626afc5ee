package onboarding

import (
	"errors"
	"strings"
	"testing"
)

func TestStepperNavigation(t *testing.T) {
	s := NewStepper()
	if s.Current() != 1 || s.Step().Label != "Business Model" {
		t.Fatalf("expected first step, got %d %q", s.Current(), s.Step().Label)
	}
	if s.Back() {
		t.Fatalf("back from the first step must not move")
	}

	for i := 2; i <= len(Steps); i++ {
		if !s.Next() {
			t.Fatalf("next to step %d did not move", i)
		}
	}
	if !s.Done() || s.Step().Title != "Add Team Member" {
		t.Fatalf("expected last step, got %d", s.Current())
	}
	if s.Next() {
		t.Fatalf("next from the last step must not move")
	}
	if !s.Back() || s.Current() != 3 {
		t.Fatalf("expected step 3 after back, got %d", s.Current())
	}
}

func TestStepperGoTo(t *testing.T) {
	s := NewStepper()
	if err := s.GoTo(3); err != nil || s.Current() != 3 {
		t.Fatalf("goto 3: current=%d err=%v", s.Current(), err)
	}
	for _, bad := range []int{0, 5, -1} {
		if err := s.GoTo(bad); !errors.Is(err, ErrStepOutOfRange) {
			t.Fatalf("goto %d: expected ErrStepOutOfRange, got %v", bad, err)
		}
	}
	if s.Current() != 3 {
		t.Fatalf("failed goto must not move, got %d", s.Current())
	}
}

func TestStepperStatus(t *testing.T) {
	s := NewStepper()
	_ = s.GoTo(2)

	want := []Status{StatusCompleted, StatusActive, StatusUpcoming, StatusUpcoming}
	for i, w := range want {
		if got := s.Status(i + 1); got != w {
			t.Fatalf("step %d: expected %s, got %s", i+1, w, got)
		}
	}
}

func TestParseBusinessModel(t *testing.T) {
	if m, ok := ParseBusinessModel("individual"); !ok || m != BusinessIndividual {
		t.Fatalf("expected individual, got %q %v", m, ok)
	}
	if m, ok := ParseBusinessModel("business"); !ok || m != BusinessInstitute {
		t.Fatalf("expected business, got %q %v", m, ok)
	}
	if _, ok := ParseBusinessModel("agency"); ok {
		t.Fatalf("unknown model must be rejected")
	}
}

func TestValidateFullName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"ok", "Al", nil},
		{"trimmed too short", "  A  ", ErrNameTooShort},
		{"empty", "", ErrNameTooShort},
		{"max", strings.Repeat("a", 100), nil},
		{"too long", strings.Repeat("a", 101), ErrNameTooLong},
		{"unicode", "Zoë", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateFullName(tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

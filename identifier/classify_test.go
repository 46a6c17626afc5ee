package identifier

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{name: "plain email", raw: "a@b.com", want: KindEmail},
		{name: "subdomain email", raw: "first.last+tag@mail.example.co.in", want: KindEmail},
		{name: "ten digits", raw: "9876543210", want: KindPhone},
		{name: "formatted phone", raw: "(987) 654-3210", want: KindPhone},
		{name: "spaced phone", raw: "98765 43210", want: KindPhone},
		{name: "plus prefix with ten digits", raw: "+987-654-3210", want: KindPhone},
		{name: "empty", raw: "", want: KindInvalid},
		{name: "whitespace only", raw: "   ", want: KindInvalid},
		{name: "nine digits", raw: "987654321", want: KindInvalid},
		{name: "eleven digits", raw: "+919876543210", want: KindInvalid},
		{name: "letters in phone", raw: "98765x3210", want: KindInvalid},
		{name: "dot separated phone", raw: "987.654.3210", want: KindInvalid},
		{name: "missing tld", raw: "a@b", want: KindInvalid},
		{name: "missing local part", raw: "@b.com", want: KindInvalid},
		{name: "space in email", raw: "a b@c.com", want: KindInvalid},
		{name: "double at", raw: "a@@b.com", want: KindInvalid},
		{name: "plain word", raw: "hello", want: KindInvalid},
		{name: "no-break space in email", raw: "a\u00a0b@c.com", want: KindInvalid},
		{name: "em space in email", raw: "a@b.com\u2003x", want: KindInvalid},
		{name: "vertical tab in email", raw: "a\vb@c.com", want: KindInvalid},
		{name: "no-break space in phone", raw: "98765\u00a043210", want: KindPhone},
		{name: "ideographic space in phone", raw: "98765\u300043210", want: KindPhone},
		{name: "byte order mark in phone", raw: "\ufeff9876543210", want: KindPhone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.raw); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.raw, got, tc.want)
			}
		})
	}
}

func TestClassifyEmailCheckedFirst(t *testing.T) {
	// Digits only in both parts still has to classify as email.
	if got := Classify("123@456.789"); got != KindEmail {
		t.Fatalf("expected email, got %s", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		wantKind Kind
	}{
		{raw: "Alice@Example.COM", want: "alice@example.com", wantKind: KindEmail},
		{raw: "(987) 654-3210", want: "9876543210", wantKind: KindPhone},
		{raw: "nope", want: "", wantKind: KindInvalid},
	}

	for _, tc := range tests {
		got, kind := Normalize(tc.raw)
		if got != tc.want || kind != tc.wantKind {
			t.Fatalf("Normalize(%q) = (%q, %s), want (%q, %s)", tc.raw, got, kind, tc.want, tc.wantKind)
		}
	}
}

func TestMask(t *testing.T) {
	if got := Mask("alice@example.com"); got != "a***@example.com" {
		t.Fatalf("unexpected email mask %q", got)
	}
	if got := Mask("98765 43210"); got != "******3210" {
		t.Fatalf("unexpected phone mask %q", got)
	}
	if got := Mask("émile@example.com"); got != "é***@example.com" {
		t.Fatalf("unexpected multibyte email mask %q", got)
	}
	if got := Mask("garbage"); got != "***" {
		t.Fatalf("unexpected invalid mask %q", got)
	}
}

package credential

import (
	"testing"

	apperrors "github.com/manimate/passkey/internal/platform/errors"
)

func TestNormalizeUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "Alice", want: "alice"},
		{in: "  Bob Smith  ", want: "bob smith"},
		{in: "CAROL99", want: "carol99"},
	}
	for _, tc := range cases {
		if got := NormalizeUsername(tc.in); got != tc.want {
			t.Fatalf("NormalizeUsername(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDeriveAccountEmail(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "alice", want: "alice@passkey.local"},
		{name: "mixed case", in: "Alice", want: "alice@passkey.local"},
		{name: "punctuation stripped", in: "bob.smith+test", want: "bobsmithtest@passkey.local"},
		{name: "digits kept", in: "carol 99", want: "carol99@passkey.local"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DeriveAccountEmail(tc.in)
			if err != nil {
				t.Fatalf("DeriveAccountEmail(%q) error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("DeriveAccountEmail(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDeriveAccountEmailRejectsUnusableNames(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!", "---"} {
		_, err := DeriveAccountEmail(in)
		if err == nil {
			t.Fatalf("DeriveAccountEmail(%q) accepted unusable username", in)
		}
		if apperrors.CodeOf(err) != apperrors.CodeInvalidInput {
			t.Fatalf("DeriveAccountEmail(%q) code = %v, want %v", in, apperrors.CodeOf(err), apperrors.CodeInvalidInput)
		}
	}
}

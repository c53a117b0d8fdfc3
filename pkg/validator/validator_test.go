package validator

import (
	"strings"
	"testing"
)

func TestValidateNickname(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "  Ada   Lovelace ", want: "Ada Lovelace"},
		{in: "Café", want: "Café"},
		{in: "   ", wantErr: true},
		{in: "", wantErr: true},
		{in: strings.Repeat("x", MaxNicknameLength+1), wantErr: true},
		{in: strings.Repeat("é", MaxNicknameLength), want: strings.Repeat("é", MaxNicknameLength)},
		{in: "bad\u0000name", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ValidateNickname(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ValidateNickname(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ValidateNickname(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateNickname(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSameNickname(t *testing.T) {
	if !SameNickname("Quiz Master", "quiz master") {
		t.Fatal("expected case-insensitive match")
	}
	if SameNickname("Quiz", "Quiz2") {
		t.Fatal("expected distinct names")
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"player@example.com", " Player.One+tag@sub.example.org "}
	for _, e := range valid {
		if err := ValidateEmail(e); err != nil {
			t.Errorf("ValidateEmail(%q) unexpected error: %v", e, err)
		}
	}

	invalid := []string{"", "no-at-sign", "a@", "@example.com", strings.Repeat("a", 250) + "@example.com"}
	for _, e := range invalid {
		if err := ValidateEmail(e); err == nil {
			t.Errorf("ValidateEmail(%q) expected error", e)
		}
	}

	if got := NormalizeEmail("  Player@Example.COM "); got != "player@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

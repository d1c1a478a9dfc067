package service

import (
	"errors"
	"testing"
)

func TestSubmitCredential(t *testing.T) {
	cases := []struct {
		name    string
		email   string
		want    string
		wantErr error
	}{
		{"plain", "a@b.co", "a@b.co", nil},
		{"trimmed", "  a@b.co\n", "a@b.co", nil},
		{"no format check", "not-an-email", "not-an-email", nil},
		{"empty", "", "", ErrEmptyEmail},
		{"blank", "   ", "", ErrEmptyEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SubmitCredential(tc.email)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
			if got.Email != tc.want {
				t.Fatalf("expected email %q, got %q", tc.want, got.Email)
			}
		})
	}
}

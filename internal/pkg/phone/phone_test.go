package phone_test

import (
	"errors"
	"testing"

	"github.com/livesale/livesale-api/internal/pkg/phone"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0912345678", "0912345678"},
		{"091 234 5678", "0912345678"},
		{"091-234-5678", "0912345678"},
		{"(091) 234.5678", "0912345678"},
		{"+84912345678", "0912345678"},
		{"84912345678", "0912345678"},
		{"  0912345678  ", "0912345678"},
		{"09123456789", "09123456789"},
	}
	for _, c := range cases {
		got, err := phone.Normalize(c.in)
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []string{
		"",
		"12345",
		"912345678",
		"0912abc678",
		"091234567890123",
		"phone",
	}
	for _, in := range cases {
		if _, err := phone.Normalize(in); !errors.Is(err, phone.ErrInvalidPhone) {
			t.Errorf("Normalize(%q): expected ErrInvalidPhone, got %v", in, err)
		}
	}
}

func TestIsNormalized(t *testing.T) {
	if !phone.IsNormalized("0912345678") {
		t.Error("canonical number should report normalized")
	}
	if phone.IsNormalized("+84912345678") {
		t.Error("prefixed number should not report normalized")
	}
}

package user

import (
	"errors"
	"testing"
	"time"
)

func TestNewUserContact(t *testing.T) {
	cases := []struct {
		name  string
		email string
		phone string
		want  error
	}{
		{"email only", " Jane@Example.com ", "", nil},
		{"phone only", "", "+254 712-345-678", nil},
		{"neither", "", "  ", ErrContactRequired},
		{"bad email", "not-an-email", "", ErrEmailInvalid},
		{"short phone", "", "12 34", ErrPhoneInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := NewUser(CreateParams{ID: "u1", Name: "Jane", Email: tc.email, Phone: tc.phone, PasswordHash: "hash"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if err != nil {
				return
			}
			if tc.email != "" && u.Email != "jane@example.com" {
				t.Errorf("email = %q", u.Email)
			}
			if tc.phone != "" && u.Phone != "+254712345678" {
				t.Errorf("phone = %q", u.Phone)
			}
		})
	}
}

func TestApplyProfileIsAtomic(t *testing.T) {
	u, err := NewUser(CreateParams{ID: "u1", Name: "Jane", Email: "jane@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatal(err)
	}
	company := "Jane Hardware"
	empty := " "
	err = u.ApplyProfile(ProfileUpdate{CompanyName: &company, Name: &empty}, time.Now())
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("err = %v, want ErrNameRequired", err)
	}
	if u.CompanyName != "" {
		t.Fatalf("company changed on failed update: %q", u.CompanyName)
	}
	if err := u.ApplyProfile(ProfileUpdate{CompanyName: &company}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if u.CompanyName != company {
		t.Fatalf("company = %q", u.CompanyName)
	}
}

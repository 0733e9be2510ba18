package dto

import (
	"time"

	domainuser "tumbi/internal/domain/user"
)

// User is the account owner's own view of their profile.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"companyName,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Location    string    `json:"location,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Verified    bool      `json:"verified"`
	Admin       bool      `json:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PublicProfile is what other users see of a vendor.
type PublicProfile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"companyName,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Location    string    `json:"location,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func MapUser(u *domainuser.User) User {
	if u == nil {
		return User{}
	}
	return User{
		ID:          string(u.ID),
		Name:        u.Name,
		CompanyName: u.CompanyName,
		Email:       u.Email,
		Phone:       u.Phone,
		Location:    u.Location,
		AvatarURL:   u.AvatarURL,
		Verified:    u.Verified,
		Admin:       u.Admin,
		CreatedAt:   u.CreatedAt,
	}
}

func MapPublicProfile(u *domainuser.User) PublicProfile {
	if u == nil {
		return PublicProfile{}
	}
	return PublicProfile{
		ID:          string(u.ID),
		Name:        u.Name,
		CompanyName: u.CompanyName,
		Phone:       u.Phone,
		Location:    u.Location,
		AvatarURL:   u.AvatarURL,
		Verified:    u.Verified,
		CreatedAt:   u.CreatedAt,
	}
}

package model

import "time"

type Account struct {
	ID                   string
	Email                string
	PasswordHash         string
	GoogleSub            string
	Name                 string
	Picture              string
	ProfilePictureURL    string
	ProfilePictureHidden bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RefreshRecord stores only the SHA-256 of the opaque secret, never the
// secret itself.
type RefreshRecord struct {
	ID        string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IP        string
	CreatedAt time.Time
}

// Live reports whether the record can still be redeemed.
func (r *RefreshRecord) Live(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// AuthUser is the identity carried by a verified access token.
type AuthUser struct {
	ID    string
	Email string
}

// PublicUser is the profile projection returned by every auth endpoint.
// Picture is the effective picture, already derived from the hide flag,
// the custom URL and the provider picture.
type PublicUser struct {
	ID                   string `json:"id"`
	Email                string `json:"email"`
	Name                 string `json:"name"`
	Picture              string `json:"picture"`
	ProfilePictureURL    string `json:"profilePictureUrl"`
	ProfilePictureHidden bool   `json:"profilePictureHidden"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type UpdateMeRequest struct {
	ProfilePictureURL    *string `json:"profilePictureUrl"`
	ProfilePictureHidden *bool   `json:"profilePictureHidden"`
}

type AuthResponse struct {
	AccessToken string     `json:"accessToken"`
	User        PublicUser `json:"user"`
}

type MeResponse struct {
	User PublicUser `json:"user"`
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

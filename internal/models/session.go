package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the backend's user record. CanvasAPIKey is the credential every
// upstream call is made with.
type User struct {
	ID           string     `json:"id,omitempty"`
	Email        string     `json:"email"`
	CanvasAPIKey string     `json:"canvasApiKey"`
	School       string     `json:"school"`
	FullName     string     `json:"fullName"`
	ScheduleIDs  []string   `json:"scheduleIds"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// CreateUserRequest is the payload used to register a user upstream.
type CreateUserRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	CanvasAPIKey string   `json:"canvasApiKey" validate:"required"`
	School       string   `json:"school" validate:"required"`
	FullName     string   `json:"fullName" validate:"required"`
	ScheduleIDs  []string `json:"scheduleIds"`
}

// Session is the single-slot client session. Only one user is signed in at a
// time; a new login replaces it wholesale.
type Session struct {
	Authenticated    bool   `json:"isAuthenticated"`
	User             *User  `json:"user,omitempty"`
	SchoolURLKey     string `json:"schoolUrlKey,omitempty"`
	SelectedSemester string `json:"selectedSemester"`
	IsNewUser        bool   `json:"isNewUser"`
}

// Credentials are the values needed to call the LMS proxy on behalf of the session.
type Credentials struct {
	APIKey  string
	BaseURL string
	Email   string
}

// Credentials derives upstream credentials from the session.
func (s Session) Credentials() (Credentials, bool) {
	if !s.Authenticated || s.User == nil {
		return Credentials{}, false
	}
	base := s.SchoolURLKey
	if base == "" {
		base = s.User.School
	}
	return Credentials{APIKey: s.User.CanvasAPIKey, BaseURL: base, Email: s.User.Email}, true
}

// SessionClaims is the JWT payload bound to the active session.
type SessionClaims struct {
	Email string `json:"email"`
	Term  string `json:"term,omitempty"`
	jwt.RegisteredClaims
}

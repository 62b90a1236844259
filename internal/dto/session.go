package dto

import (
	"time"

	"github.com/noah-isme/duetable-api/internal/models"
)

// LoginRequest signs a user in, creating the upstream account on first use.
type LoginRequest struct {
	Email        string   `json:"email" validate:"required,email"`
	CanvasAPIKey string   `json:"canvasApiKey" validate:"required"`
	School       string   `json:"school" validate:"required"`
	FullName     string   `json:"fullName" validate:"required"`
	ScheduleIDs  []string `json:"scheduleIds"`
}

// ToModel converts the payload into the upstream create request.
func (r LoginRequest) ToModel() models.CreateUserRequest {
	return models.CreateUserRequest{
		Email:        r.Email,
		CanvasAPIKey: r.CanvasAPIKey,
		School:       r.School,
		FullName:     r.FullName,
		ScheduleIDs:  r.ScheduleIDs,
	}
}

// LoginResponse returns the session and its bearer token.
type LoginResponse struct {
	Session   SessionResponse `json:"session"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// SessionResponse is the public view of the session. The API key never leaves the server.
type SessionResponse struct {
	Authenticated    bool         `json:"isAuthenticated"`
	User             *SessionUser `json:"user,omitempty"`
	SchoolURLKey     string       `json:"schoolUrlKey,omitempty"`
	SelectedSemester string       `json:"selectedSemester"`
	IsNewUser        bool         `json:"isNewUser"`
}

// SessionUser is the signed-in user without credentials.
type SessionUser struct {
	ID          string   `json:"id,omitempty"`
	Email       string   `json:"email"`
	School      string   `json:"school"`
	FullName    string   `json:"fullName"`
	ScheduleIDs []string `json:"scheduleIds"`
}

// NewSessionResponse strips credentials from s.
func NewSessionResponse(s models.Session) SessionResponse {
	resp := SessionResponse{
		Authenticated:    s.Authenticated,
		SchoolURLKey:     s.SchoolURLKey,
		SelectedSemester: s.SelectedSemester,
		IsNewUser:        s.IsNewUser,
	}
	if s.User != nil {
		resp.User = &SessionUser{
			ID:          s.User.ID,
			Email:       s.User.Email,
			School:      s.User.School,
			FullName:    s.User.FullName,
			ScheduleIDs: s.User.ScheduleIDs,
		}
	}
	return resp
}

// SetTermRequest selects the active semester.
type SetTermRequest struct {
	Term string `json:"term" validate:"required"`
}

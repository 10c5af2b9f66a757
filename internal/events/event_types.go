package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered       EventType = "user_registered"
	EventUserLoggedIn         EventType = "user_logged_in"
	EventAccessTokenRefreshed EventType = "access_token_refreshed"
	EventRefreshTokenExpired  EventType = "refresh_token_expired"
	EventUserLoggedOut        EventType = "user_logged_out"
)

// Event represents an auth lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps an event for user.
func NewEvent(eventType EventType, user *domain.User, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		Timestamp: at.UTC(),
	}
}

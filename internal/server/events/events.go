// Package events carries account lifecycle notifications to the rest of the
// platform and receives provisioning requests from it.
package events

import (
	"time"

	"github.com/distrischool/authservice/internal/server/models"
)

// Topics. Outbound lifecycle event types double as their topic names.
const (
	TopicUserCreate = "user.create"

	TypeRegistered    = "user.registered"
	TypeLogged        = "user.logged"
	TypeEmailVerified = "user.email.verified"
	TypePasswordReset = "user.password.reset"
)

// DefaultGroupID is the consumer group for the provisioning stream.
const DefaultGroupID = "auth-service-group"

// LifecycleEvent is published after an account mutation has been committed.
type LifecycleEvent struct {
	EventType string      `json:"eventType"`
	AccountID string      `json:"accountId"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewLifecycleEvent snapshots account at the given instant (stored in UTC).
func NewLifecycleEvent(eventType string, a *models.Account, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		EventType: eventType,
		AccountID: a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		Timestamp: at.UTC(),
	}
}

// ProvisioningEvent asks for an account to exist. Password is optional
// plaintext and is discarded once hashed.
type ProvisioningEvent struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	Password string `json:"password,omitempty"`
}

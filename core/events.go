package core

import (
	"context"
	"time"
)

// Domain event names
const (
	EventTenantApproved           = "tenant.approved"
	EventTenantMovedOut           = "tenant.moved_out"
	EventMaintenanceAssigned      = "maintenance.assigned"
	EventMaintenanceStatusChanged = "maintenance.status_changed"
	EventPaymentLogged            = "payment.logged"
	EventMessageSent              = "message.sent"
)

type (
	Event struct {
		Name       string      `json:"name"`
		SubjectID  string      `json:"subject_id"`
		Data       interface{} `json:"data,omitempty"`
		OccurredAt time.Time   `json:"occurred_at"`
	}

	// EventPublisher broadcasts domain events. Publishing is best effort: callers log failures and move on.
	EventPublisher interface {
		Publish(ctx context.Context, evt Event) error
	}
)

func NewEvent(name, subjectID string, data interface{}) Event {
	return Event{Name: name, SubjectID: subjectID, Data: data, OccurredAt: time.Now().UTC()}
}

package events

import (
	"fmt"
	"time"
)

const (
	RegistrationCreated       = "REGISTRATION_CREATED"
	RegistrationStatusChanged = "REGISTRATION_STATUS_CHANGED"
	RegistrationDeleted       = "REGISTRATION_DELETED"
	PaymentCompleted          = "PAYMENT_COMPLETED"
	PaymentFailed             = "PAYMENT_FAILED"
	PaymentOverridden         = "PAYMENT_OVERRIDDEN"
)

// NewRegistrationEvent builds an event whose id is derived from the registration id and
// the version the change produced, so a transition maps to exactly one id.
func NewRegistrationEvent(eventType, registrationID string, version int64, data map[string]interface{}) BaseEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["registration_id"] = registrationID
	return BaseEvent{
		ID:         fmt.Sprintf("%s:%s:%d", eventType, registrationID, version),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

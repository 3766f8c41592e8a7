// Package gateway adapts third-party payment providers to the three operations the
// registration backend needs: create an intent, authenticate a webhook, poll an intent.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"
)

type EventType string

const (
	EventPaymentSucceeded EventType = "payment.succeeded"
	EventPaymentFailed    EventType = "payment.failed"
	// EventOther covers provider events the backend does not act on.
	EventOther EventType = "other"
)

const (
	MetaRegistrationID   = "registrationId"
	MetaRegistrationType = "registrationType"

	// PendingRegistration is sent by clients that create the intent before the registration exists.
	PendingRegistration = "pending"
)

const defaultTimeout = 10 * time.Second

var ErrInvalidSignature = errors.New("invalid webhook signature")

type IntentRequest struct {
	Amount   float64
	Currency string
	Metadata map[string]string
}

type Intent struct {
	IntentID     string
	ClientSecret string
}

type Event struct {
	ID         string
	Type       EventType
	RawType    string
	IntentID   string
	Metadata   map[string]string
	OccurredAt time.Time
}

type IntentStatus struct {
	IntentID string
	Status   string
	// Outcome is EventPaymentSucceeded / EventPaymentFailed once settled, EventOther while open.
	Outcome  EventType
	Amount   float64
	Currency string
	Metadata map[string]string
}

type Gateway interface {
	Name() string
	// SignatureHeader is the request header carrying the webhook signature, empty when the
	// provider signs inside the body.
	SignatureHeader() string
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
	RetrieveIntent(ctx context.Context, intentID string) (*IntentStatus, error)
}

// RegistrationID extracts the correlation key. ok is false for the empty and "pending" sentinels.
func RegistrationID(metadata map[string]string) (string, bool) {
	id := strings.TrimSpace(metadata[MetaRegistrationID])
	if id == "" || id == PendingRegistration {
		return "", false
	}
	return id, true
}

// withDeadline runs call on its own goroutine so providers without context support still
// honour the caller's deadline.
func withDeadline[T any](ctx context.Context, timeout time.Duration, call func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Package lifecycle holds the registration and payment state machines. Every function is
// pure: it receives the current record and returns the next one without touching storage.
package lifecycle

import (
	"fmt"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/apperror"
)

type EventKind string

const (
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
)

type PaymentEvent struct {
	Kind        EventKind
	ExternalRef string
	// OccurredAt is the gateway's timestamp for the event. Zero means unknown.
	OccurredAt time.Time
}

type Outcome int

const (
	// Applied means the record changed and must be persisted.
	Applied Outcome = iota
	// Unchanged means the record is already in the requested state.
	Unchanged
	// Ignored means the input was valid but deliberately not applied.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Unchanged:
		return "unchanged"
	default:
		return "ignored"
	}
}

type Result struct {
	Registration entity.Registration
	Outcome      Outcome
	Reason       string
	// OffGraph is set for admin transitions that are allowed but not an edge of the state graph.
	OffGraph bool
}

var statusSets = map[entity.RegistrationKind][]entity.RegistrationStatus{
	entity.KindAcademy: {
		entity.StatusPending, entity.StatusApproved, entity.StatusRejected,
		entity.StatusActive, entity.StatusInactive,
	},
	entity.KindTournament: {
		entity.StatusPending, entity.StatusConfirmed, entity.StatusCancelled,
	},
}

var statusEdges = map[entity.RegistrationKind]map[entity.RegistrationStatus][]entity.RegistrationStatus{
	entity.KindAcademy: {
		entity.StatusPending:  {entity.StatusApproved, entity.StatusRejected},
		entity.StatusApproved: {entity.StatusActive, entity.StatusInactive},
		entity.StatusActive:   {entity.StatusInactive},
		entity.StatusInactive: {entity.StatusActive},
	},
	entity.KindTournament: {
		entity.StatusPending:   {entity.StatusConfirmed, entity.StatusCancelled},
		entity.StatusConfirmed: {entity.StatusCancelled},
	},
}

var paymentEdges = map[entity.PaymentStatus][]entity.PaymentStatus{
	entity.PaymentPending:   {entity.PaymentCompleted, entity.PaymentFailed},
	entity.PaymentFailed:    {entity.PaymentPending, entity.PaymentCompleted},
	entity.PaymentCompleted: {entity.PaymentRefunded},
}

func Statuses(kind entity.RegistrationKind) []entity.RegistrationStatus {
	return statusSets[kind]
}

func ValidStatus(kind entity.RegistrationKind, status entity.RegistrationStatus) bool {
	for _, s := range statusSets[kind] {
		if s == status {
			return true
		}
	}
	return false
}

// ConfirmedStatus is the status a paid, pending registration advances to.
func ConfirmedStatus(kind entity.RegistrationKind) entity.RegistrationStatus {
	if kind == entity.KindAcademy {
		return entity.StatusApproved
	}
	return entity.StatusConfirmed
}

func IsTerminalNegative(status entity.RegistrationStatus) bool {
	return status == entity.StatusCancelled || status == entity.StatusRejected
}

// CanTransition reports whether from -> to is an edge of the variant's state graph.
// A self-transition counts as an edge.
func CanTransition(kind entity.RegistrationKind, from, to entity.RegistrationStatus) bool {
	if from == to {
		return true
	}
	for _, s := range statusEdges[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanTransitionPayment(from, to entity.PaymentStatus) bool {
	if from == to {
		return true
	}
	for _, s := range paymentEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func strPtr(s string) *string {
	return &s
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func laterOf(current *time.Time, t time.Time) *time.Time {
	if t.IsZero() {
		return current
	}
	if current != nil && current.After(t) {
		return current
	}
	return timePtr(t)
}

func advanceOnPayment(reg *entity.Registration) {
	if reg.Status == entity.StatusPending {
		reg.Status = ConfirmedStatus(reg.Kind)
	}
}

// ApplyPaymentEvent folds one authenticated gateway event into the registration.
//
// succeeded: completed + paymentDate + ref, pending status advances. Cancelled and rejected
// registrations keep their status. A repeat for the same ref changes nothing.
// failed: failed + ref, status untouched. Never downgrades completed or refunded, never
// fails a newer pending intent, and an event older than the last applied one is ignored.
func ApplyPaymentEvent(reg entity.Registration, evt PaymentEvent, now time.Time) (Result, error) {
	if evt.ExternalRef == "" {
		return Result{}, apperror.Validation("payment event has no intent reference", nil)
	}

	current := reg.PaymentRef()
	next := reg

	switch evt.Kind {
	case EventSucceeded:
		switch reg.PaymentStatus {
		case entity.PaymentCompleted:
			if current == evt.ExternalRef {
				return Result{Registration: reg, Outcome: Unchanged, Reason: "payment already completed"}, nil
			}
			return Result{Registration: reg, Outcome: Ignored, Reason: "completed under a different intent"}, nil
		case entity.PaymentRefunded:
			return Result{Registration: reg, Outcome: Ignored, Reason: "payment already refunded"}, nil
		}
		next.PaymentStatus = entity.PaymentCompleted
		next.PaymentDate = timePtr(now)
		next.ExternalPaymentRef = strPtr(evt.ExternalRef)
		next.PaymentEventAt = laterOf(reg.PaymentEventAt, evt.OccurredAt)
		advanceOnPayment(&next)
		return Result{Registration: next, Outcome: Applied}, nil

	case EventFailed:
		switch reg.PaymentStatus {
		case entity.PaymentCompleted, entity.PaymentRefunded:
			return Result{Registration: reg, Outcome: Ignored, Reason: "payment already settled"}, nil
		case entity.PaymentFailed:
			if current == evt.ExternalRef {
				return Result{Registration: reg, Outcome: Unchanged, Reason: "payment already failed"}, nil
			}
		case entity.PaymentPending:
			if current != "" && current != evt.ExternalRef {
				return Result{Registration: reg, Outcome: Ignored, Reason: "failure for a superseded intent"}, nil
			}
		}
		if reg.PaymentEventAt != nil && !evt.OccurredAt.IsZero() && evt.OccurredAt.Before(*reg.PaymentEventAt) {
			return Result{Registration: reg, Outcome: Ignored, Reason: "event older than last applied event"}, nil
		}
		next.PaymentStatus = entity.PaymentFailed
		next.ExternalPaymentRef = strPtr(evt.ExternalRef)
		next.PaymentEventAt = laterOf(reg.PaymentEventAt, evt.OccurredAt)
		return Result{Registration: next, Outcome: Applied}, nil
	}

	return Result{}, apperror.Validation(fmt.Sprintf("unknown payment event kind %q", evt.Kind), nil)
}

// SetStatus is the admin status change. Only enum membership is enforced.
func SetStatus(reg entity.Registration, status entity.RegistrationStatus) (Result, error) {
	if !ValidStatus(reg.Kind, status) {
		return Result{}, apperror.InvalidState(fmt.Sprintf("invalid %s status %q", reg.Kind, status))
	}
	if reg.Status == status {
		return Result{Registration: reg, Outcome: Unchanged, Reason: "status unchanged"}, nil
	}
	next := reg
	next.Status = status
	return Result{Registration: next, Outcome: Applied, OffGraph: !CanTransition(reg.Kind, reg.Status, status)}, nil
}

// OverridePayment is the admin payment change. ref may be nil to keep the current one.
func OverridePayment(reg entity.Registration, status entity.PaymentStatus, ref *string, now time.Time) (Result, error) {
	if !status.Valid() {
		return Result{}, apperror.InvalidState(fmt.Sprintf("invalid payment status %q", status))
	}

	current := reg.PaymentRef()
	refChanges := ref != nil && *ref != current
	settled := reg.PaymentStatus == entity.PaymentCompleted || reg.PaymentStatus == entity.PaymentRefunded
	if refChanges && settled && current != "" {
		return Result{}, apperror.InvalidState("payment reference cannot change once the payment is settled")
	}

	if reg.PaymentStatus == status && !refChanges {
		return Result{Registration: reg, Outcome: Unchanged, Reason: "payment unchanged"}, nil
	}

	next := reg
	next.PaymentStatus = status
	if refChanges {
		next.ExternalPaymentRef = strPtr(*ref)
	}

	switch status {
	case entity.PaymentCompleted:
		if reg.PaymentStatus != entity.PaymentCompleted || next.PaymentDate == nil {
			next.PaymentDate = timePtr(now)
		}
		advanceOnPayment(&next)
	case entity.PaymentPending, entity.PaymentFailed:
		next.PaymentDate = nil
	}

	return Result{
		Registration: next,
		Outcome:      Applied,
		OffGraph:     !CanTransitionPayment(reg.PaymentStatus, status),
	}, nil
}

// AttachIntent records a freshly created intent. Allowed while the payment is pending or
// failed; a failed payment goes back to pending for the retry.
func AttachIntent(reg entity.Registration, ref string) (Result, error) {
	if ref == "" {
		return Result{}, apperror.Validation("intent reference is required", nil)
	}
	switch reg.PaymentStatus {
	case entity.PaymentPending, entity.PaymentFailed:
	default:
		return Result{}, apperror.InvalidState(fmt.Sprintf("payment is already %s", reg.PaymentStatus))
	}
	if reg.PaymentStatus == entity.PaymentPending && reg.PaymentRef() == ref {
		return Result{Registration: reg, Outcome: Unchanged, Reason: "intent already attached"}, nil
	}
	next := reg
	next.PaymentStatus = entity.PaymentPending
	next.ExternalPaymentRef = strPtr(ref)
	next.PaymentDate = nil
	return Result{Registration: next, Outcome: Applied}, nil
}

package specification

import (
	"time"

	"atomics-registration-be/internal/entity"

	"gorm.io/gorm"
)

type ByKind struct {
	Kind entity.RegistrationKind
}

func (s ByKind) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("kind = ?", string(s.Kind))
}

func (s ByKind) Matches(r *entity.Registration) bool {
	return r.Kind == s.Kind
}

type ByStatus struct {
	Status entity.RegistrationStatus
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(s.Status))
}

func (s ByStatus) Matches(r *entity.Registration) bool {
	return r.Status == s.Status
}

type ByPaymentStatus struct {
	Status entity.PaymentStatus
}

func (s ByPaymentStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("payment_status = ?", string(s.Status))
}

func (s ByPaymentStatus) Matches(r *entity.Registration) bool {
	return r.PaymentStatus == s.Status
}

type ByExternalRef struct {
	Ref string
}

func (s ByExternalRef) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("external_payment_ref = ?", s.Ref)
}

func (s ByExternalRef) Matches(r *entity.Registration) bool {
	return r.ExternalPaymentRef != nil && *r.ExternalPaymentRef == s.Ref
}

// DuplicateIdentity matches any registration of the same kind sharing the email, the
// mobile number, or the first name + last name + date of birth triple.
type DuplicateIdentity struct {
	Kind     entity.RegistrationKind
	Identity entity.Identity
}

func (s DuplicateIdentity) Apply(db *gorm.DB) *gorm.DB {
	id := s.Identity
	anyOf := db.Session(&gorm.Session{NewDB: true}).
		Where("email = ?", id.Email).
		Or("mobile_number = ?", id.MobileNumber).
		Or("player_first_name = ? AND player_last_name = ? AND date_of_birth = ?", id.FirstName, id.LastName, id.DateOfBirth)
	return db.Where("kind = ?", string(s.Kind)).Where(anyOf)
}

func (s DuplicateIdentity) Matches(r *entity.Registration) bool {
	if r.Kind != s.Kind {
		return false
	}
	other := r.Identity()
	id := s.Identity
	return other.Email == id.Email ||
		other.MobileNumber == id.MobileNumber ||
		(other.FirstName == id.FirstName && other.LastName == id.LastName && other.DateOfBirth.Equal(id.DateOfBirth))
}

// StalePendingPayment selects registrations holding an intent that has not settled since
// Before and that the sweep has not polled since Before either.
type StalePendingPayment struct {
	Before time.Time
}

func (s StalePendingPayment) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("payment_status = ? AND external_payment_ref IS NOT NULL AND updated_at < ?",
		string(entity.PaymentPending), s.Before).
		Where("(payment_checked_at IS NULL OR payment_checked_at < ?)", s.Before)
}

func (s StalePendingPayment) Matches(r *entity.Registration) bool {
	return r.PaymentStatus == entity.PaymentPending &&
		r.ExternalPaymentRef != nil &&
		r.UpdatedAt.Before(s.Before) &&
		(r.PaymentCheckedAt == nil || r.PaymentCheckedAt.Before(s.Before))
}

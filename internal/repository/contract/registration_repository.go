package contract

import (
	"context"
	"errors"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/repository/specification"

	"github.com/google/uuid"
)

var (
	// ErrVersionConflict is returned by UpdateIfVersion when the row moved on since it was read.
	ErrVersionConflict = errors.New("registration was modified concurrently")
	// ErrDuplicate is returned when a write violates one of the identity unique indexes.
	ErrDuplicate = errors.New("registration identity already exists")
)

type RegistrationRepository interface {
	Create(ctx context.Context, registration *entity.Registration) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Registration, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Registration, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// UpdateIfVersion writes every mutable column in one statement guarded by the version
	// the caller read. On success registration.Version is bumped.
	UpdateIfVersion(ctx context.Context, registration *entity.Registration, expectedVersion int64) error
	BulkUpdateStatus(ctx context.Context, kind entity.RegistrationKind, ids []uuid.UUID, status entity.RegistrationStatus, adminNotes *string) (int64, error)
	// MarkPaymentChecked stamps the rows the reconcile sweep just polled. It leaves version
	// and updated_at alone.
	MarkPaymentChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error
	// MarkWelcomeEmailSent flips the flag once; false means it was already set.
	MarkWelcomeEmailSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID) (bool, error)

	Stats(ctx context.Context, kind entity.RegistrationKind, dailySince time.Time) (*entity.RegistrationStats, error)
}

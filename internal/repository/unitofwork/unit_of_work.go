package unitofwork

import (
	"context"

	"atomics-registration-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	RegistrationRepository() contract.RegistrationRepository
}

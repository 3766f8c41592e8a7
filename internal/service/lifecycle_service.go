package service

import (
	"context"
	"errors"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/apperror"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/repository/contract"
	"atomics-registration-be/internal/repository/memory"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/pkg/events"
	"atomics-registration-be/pkg/lifecycle"

	"github.com/google/uuid"
)

const lifecycleModule = "Lifecycle"

// maxWriteAttempts is the first try plus one retry after a version conflict.
const maxWriteAttempts = 2

// ILifecycleService applies state transitions atomically. Every write is a single
// version-guarded update; downstream events fire only when the record actually changed.
type ILifecycleService interface {
	ApplyPaymentEvent(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, evt lifecycle.PaymentEvent) (lifecycle.Result, error)
	SetStatus(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, status entity.RegistrationStatus) (lifecycle.Result, error)
	OverridePayment(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, status entity.PaymentStatus, ref *string) (lifecycle.Result, error)
	AttachIntent(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, ref string) (lifecycle.Result, error)
}

type lifecycleService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  IPublisherService
	statsCache *memory.StatsCache
	logger     logger.ILogger
	now        func() time.Time
}

func NewLifecycleService(
	uowFactory unitofwork.RepositoryFactory,
	publisher IPublisherService,
	statsCache *memory.StatsCache,
	log logger.ILogger,
) ILifecycleService {
	return &lifecycleService{
		uowFactory: uowFactory,
		publisher:  publisher,
		statsCache: statsCache,
		logger:     log,
		now:        time.Now,
	}
}

func (s *lifecycleService) mutate(
	ctx context.Context,
	kind entity.RegistrationKind,
	id uuid.UUID,
	transition func(reg entity.Registration) (lifecycle.Result, error),
) (lifecycle.Result, *entity.Registration, error) {
	return mutateRegistration(ctx, s.uowFactory, s.logger, kind, id, transition)
}

// mutateRegistration reads the registration, runs the pure transition and writes the result
// guarded by the version it read. A lost race re-runs the whole read-modify-write once.
// The returned pointer is the record as it was read before the successful attempt.
func mutateRegistration(
	ctx context.Context,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
	kind entity.RegistrationKind,
	id uuid.UUID,
	transition func(reg entity.Registration) (lifecycle.Result, error),
) (lifecycle.Result, *entity.Registration, error) {
	repo := uowFactory.NewUnitOfWork(ctx).RegistrationRepository()

	specs := []specification.Specification{specification.ByID{ID: id}}
	if kind != "" {
		specs = append(specs, specification.ByKind{Kind: kind})
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		current, err := repo.FindOne(ctx, specs...)
		if err != nil {
			return lifecycle.Result{}, nil, apperror.Internal("failed to load registration", err)
		}
		if current == nil {
			return lifecycle.Result{}, nil, apperror.NotFound("Registration not found")
		}

		res, err := transition(*current)
		if err != nil || res.Outcome != lifecycle.Applied {
			return res, current, err
		}

		next := res.Registration
		err = repo.UpdateIfVersion(ctx, &next, current.Version)
		switch {
		case err == nil:
			res.Registration = next
			return res, current, nil
		case errors.Is(err, contract.ErrVersionConflict):
			log.Warn(lifecycleModule, "Version conflict, retrying", map[string]interface{}{
				"registration_id": id.String(),
				"attempt":         attempt,
			})
			continue
		case errors.Is(err, contract.ErrDuplicate):
			return lifecycle.Result{}, current, apperror.Duplicate(duplicateMessage)
		default:
			return lifecycle.Result{}, current, apperror.Internal("failed to update registration", err)
		}
	}

	return lifecycle.Result{}, nil, apperror.Conflict("Registration was modified concurrently, please retry", contract.ErrVersionConflict)
}

func (s *lifecycleService) ApplyPaymentEvent(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, evt lifecycle.PaymentEvent) (lifecycle.Result, error) {
	res, before, err := s.mutate(ctx, kind, id, func(reg entity.Registration) (lifecycle.Result, error) {
		return lifecycle.ApplyPaymentEvent(reg, evt, s.now())
	})
	if err != nil {
		return res, err
	}

	details := map[string]interface{}{
		"registration_id": id.String(),
		"event":           string(evt.Kind),
		"external_ref":    evt.ExternalRef,
		"outcome":         res.Outcome.String(),
	}
	if res.Reason != "" {
		details["reason"] = res.Reason
	}
	if res.Outcome == lifecycle.Ignored {
		s.logger.Warn(lifecycleModule, "Payment event ignored", details)
		return res, nil
	}
	s.logger.Info(lifecycleModule, "Payment event processed", details)

	if res.Outcome == lifecycle.Applied {
		eventType := events.PaymentFailed
		if evt.Kind == lifecycle.EventSucceeded {
			eventType = events.PaymentCompleted
		}
		s.notify(ctx, eventType, &res.Registration, map[string]interface{}{
			"payment_status_from": string(before.PaymentStatus),
		})
		s.notifyStatusChange(ctx, before, &res.Registration, false)
	}
	return res, nil
}

func (s *lifecycleService) SetStatus(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, status entity.RegistrationStatus) (lifecycle.Result, error) {
	res, before, err := s.mutate(ctx, kind, id, func(reg entity.Registration) (lifecycle.Result, error) {
		return lifecycle.SetStatus(reg, status)
	})
	if err != nil {
		return res, err
	}
	if res.Outcome == lifecycle.Applied {
		if res.OffGraph {
			s.logger.Warn(lifecycleModule, "Status set outside the usual flow", map[string]interface{}{
				"registration_id": id.String(),
				"from":            string(before.Status),
				"to":              string(status),
			})
		}
		s.notifyStatusChange(ctx, before, &res.Registration, res.OffGraph)
	}
	return res, nil
}

func (s *lifecycleService) OverridePayment(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, status entity.PaymentStatus, ref *string) (lifecycle.Result, error) {
	res, before, err := s.mutate(ctx, kind, id, func(reg entity.Registration) (lifecycle.Result, error) {
		return lifecycle.OverridePayment(reg, status, ref, s.now())
	})
	if err != nil {
		return res, err
	}
	if res.Outcome == lifecycle.Applied {
		s.logger.Info(lifecycleModule, "Payment status overridden", map[string]interface{}{
			"registration_id": id.String(),
			"from":            string(before.PaymentStatus),
			"to":              string(status),
		})
		s.notify(ctx, events.PaymentOverridden, &res.Registration, map[string]interface{}{
			"payment_status_from": string(before.PaymentStatus),
		})
		if status == entity.PaymentCompleted && before.PaymentStatus != entity.PaymentCompleted {
			s.notify(ctx, events.PaymentCompleted, &res.Registration, nil)
		}
		s.notifyStatusChange(ctx, before, &res.Registration, false)
	}
	return res, nil
}

func (s *lifecycleService) AttachIntent(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, ref string) (lifecycle.Result, error) {
	res, _, err := s.mutate(ctx, kind, id, func(reg entity.Registration) (lifecycle.Result, error) {
		return lifecycle.AttachIntent(reg, ref)
	})
	if err == nil && res.Outcome == lifecycle.Applied {
		s.invalidateStats(res.Registration.Kind)
	}
	return res, err
}

func (s *lifecycleService) notifyStatusChange(ctx context.Context, before, after *entity.Registration, offGraph bool) {
	if before.Status == after.Status {
		return
	}
	s.notify(ctx, events.RegistrationStatusChanged, after, map[string]interface{}{
		"status_from": string(before.Status),
		"off_graph":   offGraph,
	})
}

func (s *lifecycleService) notify(ctx context.Context, eventType string, reg *entity.Registration, extra map[string]interface{}) {
	s.invalidateStats(reg.Kind)
	publishRegistrationEvent(ctx, s.publisher, s.logger, eventType, reg, extra)
}

func (s *lifecycleService) invalidateStats(kind entity.RegistrationKind) {
	if s.statsCache != nil {
		s.statsCache.Invalidate(kind)
	}
}

// publishRegistrationEvent is fire-and-forget: the transition is already committed.
func publishRegistrationEvent(
	ctx context.Context,
	publisher IPublisherService,
	log logger.ILogger,
	eventType string,
	reg *entity.Registration,
	extra map[string]interface{},
) {
	if publisher == nil {
		return
	}
	data := map[string]interface{}{
		"registration_type": string(reg.Kind),
		"status":            string(reg.Status),
		"payment_status":    string(reg.PaymentStatus),
		"full_name":         reg.FullName(),
		"payment_amount":    reg.PaymentAmount,
	}
	if ref := reg.PaymentRef(); ref != "" {
		data["external_ref"] = ref
	}
	for k, v := range extra {
		data[k] = v
	}

	evt := events.NewRegistrationEvent(eventType, reg.Id.String(), reg.Version, data)
	if err := publisher.Publish(ctx, evt); err != nil {
		log.Warn(lifecycleModule, "Failed to publish event", map[string]interface{}{
			"type":            eventType,
			"registration_id": reg.Id.String(),
			"error":           err.Error(),
		})
	}
}

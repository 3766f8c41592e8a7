package service

import (
	"context"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/pkg/gateway"
	"atomics-registration-be/pkg/lifecycle"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

const (
	reconcileModule    = "Reconcile"
	reconcileBatchSize = 100
)

// IReconcileService catches payments whose webhook never arrived by polling the gateway for
// intents that have stayed pending for too long.
type IReconcileService interface {
	Sweep(ctx context.Context) (int, error)
	Schedule(scheduler gocron.Scheduler, interval time.Duration) error
}

type reconcileService struct {
	uowFactory unitofwork.RepositoryFactory
	gateway    gateway.Gateway
	lifecycle  ILifecycleService
	after      time.Duration
	logger     logger.ILogger
	now        func() time.Time
}

func NewReconcileService(
	uowFactory unitofwork.RepositoryFactory,
	gw gateway.Gateway,
	lifecycleService ILifecycleService,
	after time.Duration,
	log logger.ILogger,
) IReconcileService {
	return &reconcileService{
		uowFactory: uowFactory,
		gateway:    gw,
		lifecycle:  lifecycleService,
		after:      after,
		logger:     log,
		now:        time.Now,
	}
}

func (s *reconcileService) Schedule(scheduler gocron.Scheduler, interval time.Duration) error {
	_, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error(reconcileModule, "Sweep failed", map[string]interface{}{"error": err.Error()})
			}
		}),
		gocron.WithName("payment-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

// Sweep returns how many registrations changed. Every polled row is stamped before the
// gateway is asked, so intents that never settle move behind the ones not yet polled.
func (s *reconcileService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	stale, err := repo.FindAll(ctx,
		specification.StalePendingPayment{Before: now.Add(-s.after)},
		specification.OrderBy{Field: "payment_checked_at", NullsFirst: true},
		specification.OrderBy{Field: "updated_at"},
		specification.Pagination{Limit: reconcileBatchSize},
	)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, len(stale))
	for i, reg := range stale {
		ids[i] = reg.Id
	}
	if err := repo.MarkPaymentChecked(ctx, ids, now); err != nil {
		return 0, err
	}

	changed := 0
	for _, reg := range stale {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		if s.reconcileOne(ctx, reg) {
			changed++
		}
	}

	s.logger.Info(reconcileModule, "Sweep finished", map[string]interface{}{
		"checked": len(stale),
		"changed": changed,
	})
	return changed, nil
}

func (s *reconcileService) reconcileOne(ctx context.Context, reg *entity.Registration) bool {
	ref := reg.PaymentRef()
	status, err := s.gateway.RetrieveIntent(ctx, ref)
	if err != nil {
		s.logger.Warn(reconcileModule, "Failed to retrieve intent", map[string]interface{}{
			"registration_id": reg.Id.String(),
			"intent_id":       ref,
			"error":           err.Error(),
		})
		return false
	}

	var kind lifecycle.EventKind
	switch status.Outcome {
	case gateway.EventPaymentSucceeded:
		kind = lifecycle.EventSucceeded
	case gateway.EventPaymentFailed:
		kind = lifecycle.EventFailed
	default:
		return false
	}

	res, err := s.lifecycle.ApplyPaymentEvent(ctx, reg.Kind, reg.Id, lifecycle.PaymentEvent{
		Kind:        kind,
		ExternalRef: ref,
	})
	if err != nil {
		s.logger.Warn(reconcileModule, "Failed to apply polled outcome", map[string]interface{}{
			"registration_id": reg.Id.String(),
			"error":           err.Error(),
		})
		return false
	}
	return res.Outcome == lifecycle.Applied
}

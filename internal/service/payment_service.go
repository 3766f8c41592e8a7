package service

import (
	"context"
	"fmt"
	"strings"

	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/apperror"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/pkg/gateway"
	"atomics-registration-be/pkg/idempotency"
	"atomics-registration-be/pkg/lifecycle"

	"github.com/google/uuid"
)

const paymentModule = "Payment"

type IPaymentService interface {
	CreateIntent(ctx context.Context, req *dto.CreateIntentRequest) (*dto.CreateIntentResponse, error)
	// HandleWebhook only fails for unauthenticated payloads. Reconciliation problems are
	// logged and swallowed so the gateway does not redeliver.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	GetIntentStatus(ctx context.Context, intentID string) (*dto.PaymentStatusResponse, error)
	SignatureHeader() string
}

type paymentService struct {
	gateway         gateway.Gateway
	lifecycle       ILifecycleService
	uowFactory      unitofwork.RepositoryFactory
	events          idempotency.Store
	defaultCurrency string
	logger          logger.ILogger
}

func NewPaymentService(
	gw gateway.Gateway,
	lifecycleService ILifecycleService,
	uowFactory unitofwork.RepositoryFactory,
	events idempotency.Store,
	defaultCurrency string,
	log logger.ILogger,
) IPaymentService {
	return &paymentService{
		gateway:         gw,
		lifecycle:       lifecycleService,
		uowFactory:      uowFactory,
		events:          events,
		defaultCurrency: strings.ToLower(defaultCurrency),
		logger:          log,
	}
}

func (s *paymentService) SignatureHeader() string {
	return s.gateway.SignatureHeader()
}

// correlation resolves the registration an intent belongs to. ok is false for the pending
// sentinel; a present but malformed id is a validation error.
func correlation(metadata map[string]string) (entity.RegistrationKind, uuid.UUID, bool, error) {
	raw, ok := gateway.RegistrationID(metadata)
	if !ok {
		return "", uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, false, fmt.Errorf("registration id %q: %w", raw, err)
	}
	kind := entity.RegistrationKind(strings.ToLower(metadata[gateway.MetaRegistrationType]))
	if !kind.Valid() {
		kind = ""
	}
	return kind, id, true, nil
}

func (s *paymentService) CreateIntent(ctx context.Context, req *dto.CreateIntentRequest) (*dto.CreateIntentResponse, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	metadata := make(map[string]string, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	kind, id, linked, err := correlation(metadata)
	if err != nil {
		return nil, apperror.Validation("Invalid payment metadata", []apperror.FieldError{
			{Field: "metadata.registrationId", Message: "must be a registration id or \"pending\""},
		})
	}

	if linked {
		// Refuse before charging anything if the registration cannot take a new intent.
		repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
		specs := []specification.Specification{specification.ByID{ID: id}}
		if kind != "" {
			specs = append(specs, specification.ByKind{Kind: kind})
		}
		reg, err := repo.FindOne(ctx, specs...)
		if err != nil {
			return nil, apperror.Internal("failed to load registration", err)
		}
		if reg == nil {
			return nil, apperror.NotFound("Registration not found")
		}
		if reg.PaymentStatus != entity.PaymentPending && reg.PaymentStatus != entity.PaymentFailed {
			return nil, apperror.InvalidState(fmt.Sprintf("payment is already %s", reg.PaymentStatus))
		}
		kind = reg.Kind
		metadata[gateway.MetaRegistrationType] = string(reg.Kind)
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.IntentRequest{
		Amount:   req.Amount,
		Currency: currency,
		Metadata: metadata,
	})
	if err != nil {
		s.logger.Error(paymentModule, "Failed to create payment intent", map[string]interface{}{
			"provider": s.gateway.Name(),
			"error":    err.Error(),
		})
		return nil, apperror.Gateway("Payment provider is unavailable, please try again", err)
	}

	s.logger.Info(paymentModule, "Payment intent created", map[string]interface{}{
		"provider":        s.gateway.Name(),
		"intent_id":       intent.IntentID,
		"amount":          req.Amount,
		"currency":        currency,
		"registration_id": metadata[gateway.MetaRegistrationID],
	})

	if linked {
		if _, err := s.lifecycle.AttachIntent(ctx, kind, id, intent.IntentID); err != nil {
			// The intent carries the registration id, so the webhook still reconciles it.
			s.logger.Warn(paymentModule, "Failed to attach intent to registration", map[string]interface{}{
				"registration_id": id.String(),
				"intent_id":       intent.IntentID,
				"error":           err.Error(),
			})
		}
	}

	return &dto.CreateIntentResponse{
		ClientSecret: intent.ClientSecret,
		IntentId:     intent.IntentID,
	}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	evt, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		s.logger.Warn(paymentModule, "Rejected webhook", map[string]interface{}{
			"provider": s.gateway.Name(),
			"error":    err.Error(),
		})
		return apperror.Signature(err)
	}

	details := map[string]interface{}{
		"provider":  s.gateway.Name(),
		"event_id":  evt.ID,
		"event":     evt.RawType,
		"intent_id": evt.IntentID,
	}

	if evt.Type == gateway.EventOther {
		s.logger.Debug(paymentModule, "Webhook event not handled", details)
		return nil
	}

	if s.events != nil && evt.ID != "" {
		seen, err := s.events.Seen(ctx, evt.ID)
		if err != nil {
			s.logger.Warn(paymentModule, "Idempotency lookup failed", map[string]interface{}{"error": err.Error()})
		}
		if seen {
			s.logger.Info(paymentModule, "Duplicate webhook delivery", details)
			return nil
		}
	}

	if err := s.reconcile(ctx, evt); err != nil {
		details["error"] = err.Error()
		s.logger.Error(paymentModule, "Webhook reconciliation failed", details)
		return nil
	}

	if s.events != nil && evt.ID != "" {
		if err := s.events.Mark(ctx, evt.ID); err != nil {
			s.logger.Warn(paymentModule, "Failed to record webhook event", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// reconcile applies a settled gateway outcome to the registration named in its metadata.
func (s *paymentService) reconcile(ctx context.Context, evt *gateway.Event) error {
	kind, id, linked, err := correlation(evt.Metadata)
	if err != nil {
		return err
	}
	if !linked {
		s.logger.Info(paymentModule, "Payment not linked to a registration yet", map[string]interface{}{
			"intent_id": evt.IntentID,
		})
		return nil
	}

	paymentEvent := lifecycle.PaymentEvent{
		Kind:        lifecycle.EventFailed,
		ExternalRef: evt.IntentID,
		OccurredAt:  evt.OccurredAt,
	}
	if evt.Type == gateway.EventPaymentSucceeded {
		paymentEvent.Kind = lifecycle.EventSucceeded
	}

	_, err = s.lifecycle.ApplyPaymentEvent(ctx, kind, id, paymentEvent)
	return err
}

func (s *paymentService) GetIntentStatus(ctx context.Context, intentID string) (*dto.PaymentStatusResponse, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, apperror.Validation("Intent id is required", []apperror.FieldError{{Field: "intentId", Message: "is required"}})
	}

	status, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, apperror.Gateway("Failed to retrieve payment status", err)
	}

	res := &dto.PaymentStatusResponse{
		IntentId: status.IntentID,
		Status:   status.Status,
		Amount:   status.Amount,
		Currency: status.Currency,
		Metadata: status.Metadata,
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	reg, err := repo.FindOne(ctx, specification.ByExternalRef{Ref: intentID})
	if err != nil {
		return nil, apperror.Internal("failed to load registration", err)
	}
	if reg != nil {
		res.RegistrationId = reg.Id.String()
		res.PaymentStatus = string(reg.PaymentStatus)
	}
	return res, nil
}

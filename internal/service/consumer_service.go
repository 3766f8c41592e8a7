package service

import (
	"context"
	"fmt"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/pkg/mailer"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const consumerModule = "Consumer"

// IConsumerService sends the registration mails off the in-process event bus.
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	mailer     mailer.IEmailService
	logger     logger.ILogger
	now        func() time.Time
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	emailService mailer.IEmailService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		uowFactory: uowFactory,
		mailer:     emailService,
		logger:     log,
		now:        time.Now,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	evt, err := decodeEvent(msg.Payload)
	if err != nil {
		cs.logger.Error(consumerModule, "Failed to decode event", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	if err := cs.handle(ctx, evt); err != nil {
		cs.logger.Error(consumerModule, "Failed to handle event", map[string]interface{}{
			"event_id": evt.ID,
			"type":     evt.Type,
			"error":    err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) handle(ctx context.Context, evt events.BaseEvent) error {
	switch evt.Type {
	case events.RegistrationCreated, events.PaymentCompleted, events.RegistrationStatusChanged:
	default:
		return nil
	}
	if bulk, _ := evt.Data["bulk"].(bool); bulk {
		return nil
	}

	rawID, _ := evt.Data["registration_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		cs.logger.Warn(consumerModule, "Event without registration id", map[string]interface{}{"event_id": evt.ID})
		return nil
	}

	repo := cs.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	reg, err := repo.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return fmt.Errorf("load registration %s: %w", id, err)
	}
	if reg == nil {
		// Deleted since.
		return nil
	}

	// Mail failures are logged, not retried: a redelivered message would spin on a dead SMTP server.
	switch evt.Type {
	case events.RegistrationCreated:
		cs.send("registration received", reg, cs.mailer.SendRegistrationReceived)
	case events.PaymentCompleted:
		cs.send("payment confirmation", reg, cs.mailer.SendPaymentConfirmation)
	case events.RegistrationStatusChanged:
		if reg.Kind != entity.KindAcademy || reg.Status != entity.StatusApproved {
			return nil
		}
		if reg.Academy == nil || reg.Academy.WelcomeEmailSent {
			return nil
		}
		if !cs.send("academy welcome", reg, cs.mailer.SendAcademyWelcome) {
			return nil
		}
		if _, err := repo.MarkWelcomeEmailSent(ctx, reg.Id, cs.now()); err != nil {
			return fmt.Errorf("mark welcome email sent: %w", err)
		}
	}
	return nil
}

func (cs *consumerService) send(kind string, reg *entity.Registration, fn func(*entity.Registration) error) bool {
	details := map[string]interface{}{
		"mail":            kind,
		"registration_id": reg.Id.String(),
	}
	if err := fn(reg); err != nil {
		details["error"] = err.Error()
		cs.logger.Error(consumerModule, "Failed to send mail", details)
		return false
	}
	cs.logger.Info(consumerModule, "Mail sent", details)
	return true
}

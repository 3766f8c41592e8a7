package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []string
	fail error
}

func (m *recordingMailer) record(kind string) error {
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, kind)
	return nil
}

func (m *recordingMailer) SendRegistrationReceived(*entity.Registration) error {
	return m.record("received")
}

func (m *recordingMailer) SendPaymentConfirmation(*entity.Registration) error {
	return m.record("payment")
}

func (m *recordingMailer) SendAcademyWelcome(*entity.Registration) error {
	return m.record("welcome")
}

func newTestConsumer(h *harness, mailer *recordingMailer) *consumerService {
	return NewConsumerService(nil, RegistrationEventsTopic, h.factory, mailer, logger.NewNopLogger()).(*consumerService)
}

func eventFor(eventType string, reg *dto.RegistrationResponse) events.BaseEvent {
	return events.NewRegistrationEvent(eventType, reg.Id.String(), reg.Version, nil)
}

func TestConsumer_SendsMailPerEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mailer := &recordingMailer{}
	cs := newTestConsumer(h, mailer)

	created, err := h.registrations.CreateTournament(ctx, tournamentRequest("Omar", "omar@example.com", "0501234567"))
	require.NoError(t, err)

	require.NoError(t, cs.handle(ctx, eventFor(events.RegistrationCreated, created)))
	require.NoError(t, cs.handle(ctx, eventFor(events.PaymentCompleted, created)))
	require.NoError(t, cs.handle(ctx, eventFor(events.PaymentFailed, created)))

	// Tournament status changes never send the academy welcome.
	require.NoError(t, cs.handle(ctx, eventFor(events.RegistrationStatusChanged, created)))

	assert.Equal(t, []string{"received", "payment"}, mailer.sent)
}

func TestConsumer_AcademyWelcomeSentOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mailer := &recordingMailer{}
	cs := newTestConsumer(h, mailer)
	cs.now = func() time.Time { return h.now }

	created, err := h.registrations.CreateAcademy(ctx, academyRequest("Lina", "lina@example.com", "0502223333"))
	require.NoError(t, err)

	// Still pending: no welcome.
	require.NoError(t, cs.handle(ctx, eventFor(events.RegistrationStatusChanged, created)))
	assert.Empty(t, mailer.sent)

	approved, err := h.registrations.SetStatus(ctx, entity.KindAcademy, created.Id, &dto.UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)

	require.NoError(t, cs.handle(ctx, eventFor(events.RegistrationStatusChanged, approved)))
	require.NoError(t, cs.handle(ctx, eventFor(events.RegistrationStatusChanged, approved)))
	assert.Equal(t, []string{"welcome"}, mailer.sent)

	stored := h.find(t, created.Id)
	require.NotNil(t, stored.Academy)
	assert.True(t, stored.Academy.WelcomeEmailSent)
	require.NotNil(t, stored.Academy.WelcomeEmailDate)
	assert.True(t, h.now.Equal(*stored.Academy.WelcomeEmailDate))
}

func TestConsumer_MailFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mailer := &recordingMailer{fail: errors.New("smtp: 421 service not available")}
	cs := newTestConsumer(h, mailer)

	created, err := h.registrations.CreateAcademy(ctx, academyRequest("Lina", "lina@example.com", "0502223333"))
	require.NoError(t, err)
	approved, err := h.registrations.SetStatus(ctx, entity.KindAcademy, created.Id, &dto.UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)

	assert.NoError(t, cs.handle(ctx, eventFor(events.RegistrationCreated, created)))
	assert.NoError(t, cs.handle(ctx, eventFor(events.RegistrationStatusChanged, approved)))
	assert.False(t, h.find(t, created.Id).Academy.WelcomeEmailSent)
}

func TestConsumer_SkipsBulkAndDeleted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mailer := &recordingMailer{}
	cs := newTestConsumer(h, mailer)

	created, err := h.registrations.CreateTournament(ctx, tournamentRequest("Omar", "omar@example.com", "0501234567"))
	require.NoError(t, err)

	bulk := events.BaseEvent{
		ID:   "bulk",
		Type: events.RegistrationStatusChanged,
		Data: map[string]interface{}{"bulk": true, "registration_ids": []string{created.Id.String()}},
	}
	require.NoError(t, cs.handle(ctx, bulk))

	require.NoError(t, h.registrations.Delete(ctx, entity.KindTournament, created.Id))
	require.NoError(t, cs.handle(ctx, eventFor(events.PaymentCompleted, created)))

	assert.Empty(t, mailer.sent)
}

package gateway

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func stripePayload(eventType, intentID, registrationID string, created int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_%s",
		"object": "event",
		"type": %q,
		"created": %d,
		"data": {"object": {
			"id": %q,
			"object": "payment_intent",
			"status": "succeeded",
			"metadata": {"registrationId": %q, "registrationType": "tournament"}
		}}
	}`, intentID, eventType, created, intentID, registrationID))
}

func sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestStripeGateway_ParseEvent(t *testing.T) {
	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})

	t.Run("succeeded event", func(t *testing.T) {
		payload := stripePayload(stripeEventSucceeded, "pi_123", "reg-1", 1754042400)

		evt, err := g.ParseEvent(payload, sign(payload, testWebhookSecret))
		require.NoError(t, err)
		assert.Equal(t, "evt_pi_123", evt.ID)
		assert.Equal(t, EventPaymentSucceeded, evt.Type)
		assert.Equal(t, "pi_123", evt.IntentID)
		assert.Equal(t, "reg-1", evt.Metadata[MetaRegistrationID])
		assert.Equal(t, time.Unix(1754042400, 0).UTC(), evt.OccurredAt)
	})

	t.Run("failed event", func(t *testing.T) {
		payload := stripePayload(stripeEventFailed, "pi_9", "reg-2", 1754042400)

		evt, err := g.ParseEvent(payload, sign(payload, testWebhookSecret))
		require.NoError(t, err)
		assert.Equal(t, EventPaymentFailed, evt.Type)
	})

	t.Run("unhandled event type", func(t *testing.T) {
		payload := stripePayload("charge.refunded", "pi_5", "reg-3", 1754042400)

		evt, err := g.ParseEvent(payload, sign(payload, testWebhookSecret))
		require.NoError(t, err)
		assert.Equal(t, EventOther, evt.Type)
		assert.Empty(t, evt.IntentID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		payload := stripePayload(stripeEventSucceeded, "pi_123", "reg-1", 1754042400)

		_, err := g.ParseEvent(payload, sign(payload, "whsec_other"))
		assert.True(t, errors.Is(err, ErrInvalidSignature))
	})

	t.Run("tampered body", func(t *testing.T) {
		payload := stripePayload(stripeEventSucceeded, "pi_123", "reg-1", 1754042400)
		header := sign(payload, testWebhookSecret)

		_, err := g.ParseEvent(stripePayload(stripeEventSucceeded, "pi_999", "reg-1", 1754042400), header)
		assert.True(t, errors.Is(err, ErrInvalidSignature))
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := g.ParseEvent(stripePayload(stripeEventSucceeded, "pi_1", "r", 1), "")
		assert.True(t, errors.Is(err, ErrInvalidSignature))
	})
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(50000), toMinorUnits(500))
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, int64(0), toMinorUnits(0))
}

func TestRegistrationID(t *testing.T) {
	_, ok := RegistrationID(map[string]string{})
	assert.False(t, ok)

	_, ok = RegistrationID(map[string]string{MetaRegistrationID: "pending"})
	assert.False(t, ok)

	id, ok := RegistrationID(map[string]string{MetaRegistrationID: " abc "})
	assert.True(t, ok)
	assert.Equal(t, "abc", id)
}

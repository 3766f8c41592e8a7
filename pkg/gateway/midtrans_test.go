package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "SB-Mid-server-test"

func midtransBody(t *testing.T, n midtransNotification) []byte {
	t.Helper()
	b, err := json.Marshal(n)
	require.NoError(t, err)
	return b
}

func TestOrderIDRoundTrip(t *testing.T) {
	orderID := EncodeOrderID(map[string]string{
		MetaRegistrationID:   "6f1c2a4e-8d0b-4c1e-9f3a-2b7d5e6c8a90",
		MetaRegistrationType: "academy",
	})
	assert.LessOrEqual(t, len(orderID), 50)

	meta, err := DecodeOrderID(orderID)
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a4e-8d0b-4c1e-9f3a-2b7d5e6c8a90", meta[MetaRegistrationID])
	assert.Equal(t, "academy", meta[MetaRegistrationType])

	pending, err := DecodeOrderID(EncodeOrderID(nil))
	require.NoError(t, err)
	_, ok := RegistrationID(pending)
	assert.False(t, ok)

	_, err = DecodeOrderID("plain-order")
	assert.Error(t, err)
}

func TestMidtransGateway_ParseEvent(t *testing.T) {
	g := NewMidtransGateway(MidtransConfig{ServerKey: testServerKey})
	orderID := "T-6f1c2a4e-8d0b-4c1e-9f3a-2b7d5e6c8a90-0a1b2c3d"

	base := midtransNotification{
		TransactionID:     "tx-1",
		TransactionStatus: "settlement",
		TransactionTime:   "2025-08-01 17:00:00",
		SettlementTime:    "2025-08-01 17:00:05",
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       "500.00",
	}

	t.Run("valid settlement", func(t *testing.T) {
		n := base
		n.SignatureKey = MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)

		evt, err := g.ParseEvent(midtransBody(t, n), "")
		require.NoError(t, err)
		assert.Equal(t, EventPaymentSucceeded, evt.Type)
		assert.Equal(t, "tx-1:settlement", evt.ID)
		assert.Equal(t, orderID, evt.IntentID)
		assert.Equal(t, "tournament", evt.Metadata[MetaRegistrationType])
		assert.Equal(t, "6f1c2a4e-8d0b-4c1e-9f3a-2b7d5e6c8a90", evt.Metadata[MetaRegistrationID])
		assert.Equal(t, time.Date(2025, 8, 1, 10, 0, 5, 0, time.UTC), evt.OccurredAt)
	})

	t.Run("expire maps to failed", func(t *testing.T) {
		n := base
		n.TransactionStatus = "expire"
		n.StatusCode = "407"
		n.SignatureKey = MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)

		evt, err := g.ParseEvent(midtransBody(t, n), "")
		require.NoError(t, err)
		assert.Equal(t, EventPaymentFailed, evt.Type)
	})

	t.Run("bad signature", func(t *testing.T) {
		n := base
		n.SignatureKey = MidtransSignature(n.OrderID, n.StatusCode, "1.00", testServerKey)

		_, err := g.ParseEvent(midtransBody(t, n), "")
		assert.True(t, errors.Is(err, ErrInvalidSignature))
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := g.ParseEvent([]byte("{not json"), "")
		assert.True(t, errors.Is(err, ErrInvalidSignature))
	})
}

func TestMidtransOutcome(t *testing.T) {
	assert.Equal(t, EventPaymentSucceeded, midtransOutcome("capture", "accept"))
	assert.Equal(t, EventOther, midtransOutcome("capture", "challenge"))
	assert.Equal(t, EventPaymentFailed, midtransOutcome("deny", ""))
	assert.Equal(t, EventOther, midtransOutcome("pending", ""))
}

func TestWithDeadline(t *testing.T) {
	_, err := withDeadline(context.Background(), 10*time.Millisecond, func() (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	v, err := withDeadline(context.Background(), time.Second, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

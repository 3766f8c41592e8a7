package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/webhook"
)

const (
	stripeEventSucceeded = "payment_intent.succeeded"
	stripeEventFailed    = "payment_intent.payment_failed"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Timeout       time.Duration
}

type StripeGateway struct {
	intents       *paymentintent.Client
	webhookSecret string
	timeout       time.Duration
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(1),
	})
	return &StripeGateway{
		intents:       &paymentintent.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		timeout:       cfg.Timeout,
	}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) SignatureHeader() string { return "Stripe-Signature" }

// toMinorUnits converts 500.00 AED into 50000 fils.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &Intent{IntentID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{
		ID:         evt.ID,
		RawType:    string(evt.Type),
		Type:       EventOther,
		OccurredAt: time.Unix(evt.Created, 0).UTC(),
		Metadata:   map[string]string{},
	}
	switch string(evt.Type) {
	case stripeEventSucceeded:
		out.Type = EventPaymentSucceeded
	case stripeEventFailed:
		out.Type = EventPaymentFailed
	default:
		return out, nil
	}

	if evt.Data == nil {
		return nil, fmt.Errorf("stripe event %s has no data", evt.ID)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	out.IntentID = pi.ID
	for k, v := range pi.Metadata {
		out.Metadata[k] = v
	}
	return out, nil
}

func stripeOutcome(status stripe.PaymentIntentStatus) EventType {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return EventPaymentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return EventPaymentFailed
	default:
		return EventOther
	}
}

func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*IntentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve payment intent: %w", err)
	}
	return &IntentStatus{
		IntentID: pi.ID,
		Status:   string(pi.Status),
		Outcome:  stripeOutcome(pi.Status),
		Amount:   float64(pi.Amount) / 100,
		Currency: string(pi.Currency),
		Metadata: pi.Metadata,
	}, nil
}

package gateway

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Midtrans timestamps are local Jakarta time without an offset.
var jakarta = time.FixedZone("WIB", 7*60*60)

const midtransTimeLayout = "2006-01-02 15:04:05"

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
	Timeout      time.Duration
}

// MidtransGateway uses Snap for checkout. Midtrans has no intent metadata, so the
// registration id and kind travel inside the order id and the order id is the intent id.
type MidtransGateway struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
	timeout   time.Duration
}

func NewMidtransGateway(cfg MidtransConfig) *MidtransGateway {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	g := &MidtransGateway{serverKey: cfg.ServerKey, timeout: cfg.Timeout}
	g.snap.New(cfg.ServerKey, env)
	g.core.New(cfg.ServerKey, env)
	return g
}

func (g *MidtransGateway) Name() string { return "midtrans" }

func (g *MidtransGateway) SignatureHeader() string { return "" }

var kindCodes = map[string]string{"academy": "A", "tournament": "T"}

func newNonce() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// EncodeOrderID packs the correlation metadata as <A|T|X>-<registrationId>-<nonce>.
func EncodeOrderID(metadata map[string]string) string {
	code, ok := kindCodes[metadata[MetaRegistrationType]]
	if !ok {
		code = "X"
	}
	id, ok := RegistrationID(metadata)
	if !ok {
		id = PendingRegistration
	}
	return fmt.Sprintf("%s-%s-%s", code, id, newNonce())
}

// DecodeOrderID is the inverse of EncodeOrderID.
func DecodeOrderID(orderID string) (map[string]string, error) {
	first := strings.Index(orderID, "-")
	last := strings.LastIndex(orderID, "-")
	if first != 1 || last <= first+1 {
		return nil, fmt.Errorf("unrecognised order id %q", orderID)
	}

	meta := map[string]string{MetaRegistrationID: orderID[first+1 : last]}
	for kind, code := range kindCodes {
		if orderID[:1] == code {
			meta[MetaRegistrationType] = kind
		}
	}
	return meta, nil
}

func (g *MidtransGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	orderID := EncodeOrderID(req.Metadata)
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: int64(math.Round(req.Amount)),
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	resp, err := withDeadline(ctx, g.timeout, func() (*snap.Response, error) {
		resp, mErr := g.snap.CreateTransaction(snapReq)
		if mErr != nil {
			return nil, errors.New(mErr.GetMessage())
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("midtrans create transaction: %w", err)
	}
	return &Intent{IntentID: orderID, ClientSecret: resp.Token}, nil
}

type midtransNotification struct {
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	TransactionTime   string `json:"transaction_time"`
	SettlementTime    string `json:"settlement_time"`
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	FraudStatus       string `json:"fraud_status"`
}

// Signature = SHA512(order_id + status_code + gross_amount + server_key), hex encoded.
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func midtransOutcome(transactionStatus, fraudStatus string) EventType {
	switch transactionStatus {
	case "settlement":
		return EventPaymentSucceeded
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return EventPaymentSucceeded
		}
		return EventOther
	case "deny", "cancel", "expire", "failure":
		return EventPaymentFailed
	default:
		return EventOther
	}
}

func parseMidtransTime(values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		if t, err := time.ParseInLocation(midtransTimeLayout, v, jakarta); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseEvent ignores signature; Midtrans signs inside the body.
func (g *MidtransGateway) ParseEvent(payload []byte, _ string) (*Event, error) {
	var n midtransNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: malformed notification: %v", ErrInvalidSignature, err)
	}
	if n.SignatureKey == "" || g.serverKey == "" {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}
	expected := MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, g.serverKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return nil, fmt.Errorf("%w: signature mismatch for order %s", ErrInvalidSignature, n.OrderID)
	}

	meta, err := DecodeOrderID(n.OrderID)
	if err != nil {
		meta = map[string]string{}
	}
	return &Event{
		ID:         n.TransactionID + ":" + n.TransactionStatus,
		Type:       midtransOutcome(n.TransactionStatus, n.FraudStatus),
		RawType:    n.TransactionStatus,
		IntentID:   n.OrderID,
		Metadata:   meta,
		OccurredAt: parseMidtransTime(n.SettlementTime, n.TransactionTime),
	}, nil
}

func (g *MidtransGateway) RetrieveIntent(ctx context.Context, intentID string) (*IntentStatus, error) {
	resp, err := withDeadline(ctx, g.timeout, func() (*coreapi.TransactionStatusResponse, error) {
		resp, mErr := g.core.CheckTransaction(intentID)
		if mErr != nil {
			return nil, errors.New(mErr.GetMessage())
		}
		return resp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("midtrans check transaction: %w", err)
	}

	amount, _ := strconv.ParseFloat(resp.GrossAmount, 64)
	meta, err := DecodeOrderID(resp.OrderID)
	if err != nil {
		meta = map[string]string{}
	}
	return &IntentStatus{
		IntentID: resp.OrderID,
		Status:   resp.TransactionStatus,
		Outcome:  midtransOutcome(resp.TransactionStatus, resp.FraudStatus),
		Amount:   amount,
		Currency: resp.Currency,
		Metadata: meta,
	}, nil
}

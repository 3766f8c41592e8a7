package dto

type CreateIntentRequest struct {
	Amount   float64           `json:"amount" validate:"gt=0"`
	Currency string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Metadata map[string]string `json:"metadata"`
}

type CreateIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	IntentId     string `json:"intentId"`
}

// WebhookAck is what every authenticated delivery gets back, whatever happened downstream.
type WebhookAck struct {
	Success  bool `json:"success"`
	Received bool `json:"received"`
}

type PaymentStatusResponse struct {
	IntentId       string            `json:"intentId"`
	Status         string            `json:"status"`
	Amount         float64           `json:"amount"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	RegistrationId string            `json:"registrationId,omitempty"`
	PaymentStatus  string            `json:"paymentStatus,omitempty"`
}

// Package billing verifies Stripe webhooks and turns completed checkout
// sessions into policy finalize input.
package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/config"
)

// EventCheckoutSessionCompleted is the only event type that creates policies
const EventCheckoutSessionCompleted = "checkout.session.completed"

var (
	// ErrMissingSignature is returned when the Stripe-Signature header is absent
	ErrMissingSignature = errors.New("missing Stripe-Signature header")

	// ErrInvalidSignature wraps any verification failure
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// MissingMetadataError lists the checkout metadata keys a session lacked
type MissingMetadataError struct {
	Keys []string
}

func (e *MissingMetadataError) Error() string {
	return "missing checkout metadata: " + strings.Join(e.Keys, ", ")
}

// requiredMetadata must be present for a session to become a policy
var requiredMetadata = []string{"registration", "startAt", "endAt"}

// CheckoutEvent is a verified webhook delivery
type CheckoutEvent struct {
	EventID   string
	EventType string
	SessionID string
	// Fulfillable is true for a completed and paid checkout session
	Fulfillable bool
	// Input is only populated when Fulfillable is true
	Input policy.FinalizeInput
}

// StripeCheckoutParser verifies signed webhook payloads
type StripeCheckoutParser struct {
	cfg config.StripeConfig
}

// NewStripeCheckoutParser creates a parser for the given Stripe settings
func NewStripeCheckoutParser(cfg config.StripeConfig) *StripeCheckoutParser {
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = webhook.DefaultTolerance
	}
	return &StripeCheckoutParser{cfg: cfg}
}

// Parse verifies the signature and extracts the checkout session.
// Events other than a paid checkout.session.completed come back with
// Fulfillable false and no error.
func (p *StripeCheckoutParser) Parse(payload []byte, signature string) (*CheckoutEvent, error) {
	if err := p.cfg.RequireWebhook(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(signature) == "" {
		return nil, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                p.cfg.WebhookTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := &CheckoutEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
	}
	if result.EventType != EventCheckoutSessionCompleted || event.Data == nil {
		return result, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	result.SessionID = session.ID
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return result, nil
	}

	input, err := FinalizeInputFromSession(&session)
	if err != nil {
		return nil, err
	}
	result.Fulfillable = true
	result.Input = input
	return result, nil
}

// FinalizeInputFromSession maps checkout metadata onto FinalizeInput.
// Email falls back to the customer details Stripe collected and the price to
// the session total.
func FinalizeInputFromSession(session *stripe.CheckoutSession) (policy.FinalizeInput, error) {
	md := session.Metadata
	get := func(key string) string {
		return strings.TrimSpace(md[key])
	}

	var missing []string
	for _, key := range requiredMetadata {
		if get(key) == "" {
			missing = append(missing, key)
		}
	}

	email := get("email")
	if email == "" && session.CustomerDetails != nil {
		email = strings.TrimSpace(session.CustomerDetails.Email)
	}
	if email == "" {
		email = strings.TrimSpace(session.CustomerEmail)
	}
	if email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return policy.FinalizeInput{}, &MissingMetadataError{Keys: missing}
	}

	price := parseInt(get("pricePence"))
	if price <= 0 {
		price = session.AmountTotal
	}

	currency := strings.ToUpper(string(session.Currency))
	if currency == "" {
		currency = policy.DefaultCurrency
	}

	return policy.FinalizeInput{
		Registration:    get("registration"),
		Make:            get("make"),
		Model:           get("model"),
		Year:            int(parseInt(get("year"))),
		StartAt:         get("startAt"),
		EndAt:           get("endAt"),
		DurationMs:      parseInt(get("durationMs")),
		PricePence:      price,
		Currency:        currency,
		FirstName:       get("firstName"),
		LastName:        get("lastName"),
		DateOfBirth:     get("dob"),
		Email:           email,
		LicenceType:     get("licenceType"),
		AddressLine1:    get("addressLine1"),
		AddressLine2:    get("addressLine2"),
		City:            get("city"),
		Postcode:        get("postcode"),
		PaymentProvider: policy.PaymentProviderStripe,
		PaymentID:       session.ID,
		PaymentStatus:   string(session.PaymentStatus),
	}, nil
}

// parseInt reads a metadata number; unparsable values become 0 and are
// rejected by input validation.
func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return n
}

// SignTestPayload signs payload as Stripe would, for tests and local tooling
func SignTestPayload(payload []byte, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Header
}

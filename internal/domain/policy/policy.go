// Package policy holds the temporary motor cover policy aggregate together
// with its documents and audit events.
package policy

import (
	"strings"
	"time"

	"github.com/tempcover/backend/internal/domain/shared"
)

// PaymentProvider identifies who took the payment for a policy
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "STRIPE"
)

// IsValid reports whether the provider is one we accept
func (p PaymentProvider) IsValid() bool {
	return p == PaymentProviderStripe
}

// Vehicle describes the insured vehicle
type Vehicle struct {
	Registration string
	Make         string
	Model        string
	Year         int
}

// Customer holds the policyholder details captured at checkout
type Customer struct {
	FirstName    string
	LastName     string
	DateOfBirth  string
	Email        string
	LicenceType  string
	AddressLine1 string
	AddressLine2 string
	City         string
	Postcode     string
}

// FullName returns "First Last" with empty parts dropped
func (c Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Payment is the payment reference a policy was created from
type Payment struct {
	Provider PaymentProvider
	ID       string
	Status   string
}

// Policy is a purchased temporary insurance contract.
// A policy is created once per (Payment.Provider, Payment.ID).
type Policy struct {
	shared.BaseEntity
	PolicyNumber string
	Vehicle      Vehicle
	StartAt      time.Time
	EndAt        time.Time
	DurationMs   int64
	PricePence   int64
	Currency     string
	Customer     Customer
	Payment      Payment
}

// NewPolicy builds a policy from validated finalize input
func NewPolicy(in FinalizeInput, policyNumber string) (*Policy, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(policyNumber) == "" {
		return nil, shared.NewValidationError("policy number cannot be empty")
	}

	startAt, _ := in.ParsedStartAt()
	endAt, _ := in.ParsedEndAt()

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Policy{
		BaseEntity:   shared.NewBaseEntity(),
		PolicyNumber: policyNumber,
		Vehicle: Vehicle{
			Registration: NormalizeRegistration(in.Registration),
			Make:         strings.TrimSpace(in.Make),
			Model:        strings.TrimSpace(in.Model),
			Year:         in.Year,
		},
		StartAt:    startAt.UTC(),
		EndAt:      endAt.UTC(),
		DurationMs: in.DurationMs,
		PricePence: in.PricePence,
		Currency:   currency,
		Customer: Customer{
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			DateOfBirth:  strings.TrimSpace(in.DateOfBirth),
			Email:        strings.TrimSpace(in.Email),
			LicenceType:  strings.TrimSpace(in.LicenceType),
			AddressLine1: strings.TrimSpace(in.AddressLine1),
			AddressLine2: strings.TrimSpace(in.AddressLine2),
			City:         strings.TrimSpace(in.City),
			Postcode:     strings.ToUpper(strings.TrimSpace(in.Postcode)),
		},
		Payment: Payment{
			Provider: in.PaymentProvider,
			ID:       strings.TrimSpace(in.PaymentID),
			Status:   strings.TrimSpace(in.PaymentStatus),
		},
	}, nil
}

// WithPolicyNumber returns a copy carrying a different policy number.
// Used when an insert collides on the number and has to be retried.
func (p *Policy) WithPolicyNumber(number string) *Policy {
	cp := *p
	cp.PolicyNumber = number
	return &cp
}

// MatchesEmail compares the policyholder email case-insensitively
func (p *Policy) MatchesEmail(email string) bool {
	given := strings.TrimSpace(email)
	if given == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(p.Customer.Email), given)
}

// Duration returns the cover length
func (p *Policy) Duration() time.Duration {
	return time.Duration(p.DurationMs) * time.Millisecond
}

// NormalizeRegistration upper-cases a registration mark and strips whitespace
func NormalizeRegistration(reg string) string {
	return strings.ToUpper(strings.Join(strings.Fields(reg), ""))
}

// NormalizePolicyNumber upper-cases and trims a policy number typed by a customer
func NormalizePolicyNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

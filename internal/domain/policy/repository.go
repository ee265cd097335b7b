package policy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrPolicyNumberTaken is returned by Create when the generated number already exists
	ErrPolicyNumberTaken = errors.New("policy number already exists")

	// ErrPaymentAlreadyFinalized is returned by Create when another policy holds the payment key
	ErrPaymentAlreadyFinalized = errors.New("payment already has a policy")
)

// PolicyRepository persists policies
type PolicyRepository interface {
	// Create inserts a policy. Unique violations surface as
	// ErrPolicyNumberTaken or ErrPaymentAlreadyFinalized.
	Create(ctx context.Context, p *Policy) error
	FindByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	FindByPayment(ctx context.Context, provider PaymentProvider, paymentID string) (*Policy, error)
	FindByPolicyNumber(ctx context.Context, policyNumber string) (*Policy, error)
}

// DocumentRepository persists generated documents
type DocumentRepository interface {
	FindByPolicyID(ctx context.Context, policyID uuid.UUID) ([]PolicyDocument, error)
	// CreateIfAbsent inserts doc unless the policy already has one of that kind.
	// Returns true if a row was written.
	CreateIfAbsent(ctx context.Context, doc *PolicyDocument) (bool, error)
}

// EventRepository appends and queries audit events
type EventRepository interface {
	Append(ctx context.Context, event *PolicyEvent) error
	Exists(ctx context.Context, policyID uuid.UUID, eventType EventType) (bool, error)
}

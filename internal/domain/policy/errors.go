package policy

import "github.com/tempcover/backend/internal/domain/shared"

var (
	// ErrPolicyNumberExhausted is returned when every generated number collided
	ErrPolicyNumberExhausted = shared.NewDomainError("POLICY_NUMBER_EXHAUSTED",
		"Could not allocate a unique policy number")

	// ErrFulfillmentInProgress is returned while another worker holds the policy's fulfillment lock
	ErrFulfillmentInProgress = shared.NewDomainError("FULFILLMENT_IN_PROGRESS",
		"Policy documents are already being generated")

	// ErrDeliveryInProgress is returned while another instance is processing
	// the same webhook event
	ErrDeliveryInProgress = shared.NewDomainError("DELIVERY_IN_PROGRESS",
		"This webhook event is already being processed")

	// ErrNoMatchingPolicy is the single answer for every failed retrieval so
	// callers cannot tell which policy numbers exist
	ErrNoMatchingPolicy = shared.NewDomainError("NOT_FOUND", "No policy matches those details")
)

// Package policy orchestrates the purchase pipeline: turning a paid checkout
// into a policy, producing its documents and emailing them, and serving
// customer retrieval.
package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/billing"
	"github.com/tempcover/backend/internal/infrastructure/email"
)

// DocumentStore holds generated PDFs
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	// PublicURL returns "" when objects are private
	PublicURL(key string) string
}

// DocumentRenderer produces the PDF for one document kind
type DocumentRenderer interface {
	Render(ctx context.Context, kind policy.DocumentKind, data policy.DocumentData) ([]byte, error)
}

// DocumentMailer delivers the documents email and returns the provider message id
type DocumentMailer interface {
	SendDocuments(ctx context.Context, msg email.DocumentsEmail) (string, error)
}

// CheckoutParser verifies and decodes a payment webhook delivery
type CheckoutParser interface {
	Parse(payload []byte, signature string) (*billing.CheckoutEvent, error)
}

// Finalizer turns a paid checkout into a policy
type Finalizer interface {
	Finalize(ctx context.Context, in policy.FinalizeInput) (*FinalizeResult, error)
}

// Fulfiller produces and delivers a policy's documents
type Fulfiller interface {
	Fulfill(ctx context.Context, policyID uuid.UUID) (*FulfillmentResult, error)
}

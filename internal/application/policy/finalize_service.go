package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FinalizeResult is the policy for a payment and whether this call created it
type FinalizeResult struct {
	Policy  *policy.Policy
	Created bool
}

// FinalizeService creates exactly one policy per payment
type FinalizeService struct {
	policies  policy.PolicyRepository
	events    policy.EventRepository
	newNumber func() (string, error)
	metrics   *telemetry.PolicyMetrics
	logger    *zap.Logger
}

// FinalizeServiceConfig contains dependencies for FinalizeService
type FinalizeServiceConfig struct {
	Policies policy.PolicyRepository
	Events   policy.EventRepository
	Metrics  *telemetry.PolicyMetrics
	Logger   *zap.Logger
}

// NewFinalizeService creates a new FinalizeService
func NewFinalizeService(cfg FinalizeServiceConfig) *FinalizeService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinalizeService{
		policies:  cfg.Policies,
		events:    cfg.Events,
		newNumber: policy.GeneratePolicyNumber,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Finalize validates in and returns the policy for its payment, creating it
// if this is the first delivery. Concurrent calls for one payment converge on
// a single row through the unique payment key.
func (s *FinalizeService) Finalize(ctx context.Context, in policy.FinalizeInput) (res *FinalizeResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "policy.finalize",
		attribute.String("payment.provider", string(in.PaymentProvider)),
		attribute.String("payment.id", in.PaymentID))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	paymentID := strings.TrimSpace(in.PaymentID)
	existing, err := s.policies.FindByPayment(ctx, in.PaymentProvider, paymentID)
	if err == nil {
		s.metrics.RecordFinalize(ctx, telemetry.OutcomeExisting)
		return &FinalizeResult{Policy: existing}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up policy by payment: %w", err)
	}

	var candidate *policy.Policy
	for attempt := 1; attempt <= policy.MaxPolicyNumberAttempts; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			if candidate, err = policy.NewPolicy(in, number); err != nil {
				return nil, err
			}
		} else {
			candidate = candidate.WithPolicyNumber(number)
		}

		err = s.policies.Create(ctx, candidate)
		switch {
		case err == nil:
			s.recordCreated(ctx, candidate)
			return &FinalizeResult{Policy: candidate, Created: true}, nil

		case errors.Is(err, policy.ErrPolicyNumberTaken):
			s.metrics.RecordNumberCollision(ctx)
			s.logger.Warn("Policy number collision, regenerating",
				zap.String("policy_number", number),
				zap.Int("attempt", attempt))

		case errors.Is(err, policy.ErrPaymentAlreadyFinalized):
			winner, ferr := s.policies.FindByPayment(ctx, in.PaymentProvider, paymentID)
			if ferr != nil {
				return nil, fmt.Errorf("failed to load concurrently created policy: %w", ferr)
			}
			s.logger.Info("Payment finalized concurrently, returning existing policy",
				zap.String("payment_id", paymentID),
				zap.String("policy_number", winner.PolicyNumber))
			s.metrics.RecordFinalize(ctx, telemetry.OutcomeExisting)
			return &FinalizeResult{Policy: winner}, nil

		default:
			return nil, fmt.Errorf("failed to create policy: %w", err)
		}
	}

	s.logger.Error("Exhausted policy number attempts",
		zap.String("payment_id", paymentID),
		zap.Int("attempts", policy.MaxPolicyNumberAttempts))
	return nil, policy.ErrPolicyNumberExhausted
}

// recordCreated appends the audit event. The policy row is already the
// idempotency key, so a failed append is logged rather than failing the call.
func (s *FinalizeService) recordCreated(ctx context.Context, p *policy.Policy) {
	s.metrics.RecordFinalize(ctx, telemetry.OutcomeCreated)
	s.logger.Info("Policy created",
		zap.String("policy_id", p.ID.String()),
		zap.String("policy_number", p.PolicyNumber),
		zap.String("payment_id", p.Payment.ID))

	event, err := policy.NewPolicyEvent(p.ID, policy.EventPolicyCreated, map[string]any{
		"paymentProvider": p.Payment.Provider,
		"paymentId":       p.Payment.ID,
		"pricePence":      p.PricePence,
	})
	if err == nil {
		err = s.events.Append(ctx, event)
	}
	if err != nil {
		s.logger.Error("Failed to record POLICY_CREATED",
			zap.String("policy_id", p.ID.String()),
			zap.Error(err))
	}
}

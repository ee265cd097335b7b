package policy

import (
	"context"
	"time"

	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	// webhookDedupeTTL covers Stripe's retry window
	webhookDedupeTTL = 72 * time.Hour

	// webhookInFlightTTL bounds how long a crashed instance can hold a
	// delivery before a retry may process it
	webhookInFlightTTL = 2 * time.Minute
)

// WebhookResult describes what a delivery led to
type WebhookResult struct {
	EventID      string `json:"eventId"`
	EventType    string `json:"eventType"`
	Ignored      bool   `json:"ignored,omitempty"`
	Duplicate    bool   `json:"duplicate,omitempty"`
	PolicyNumber string `json:"policyNumber,omitempty"`
	Created      bool   `json:"created,omitempty"`
	// FulfillmentError is set when documents could not be produced; the
	// delivery is still acknowledged
	FulfillmentError string `json:"fulfillmentError,omitempty"`
}

// WebhookService drives finalize and fulfill from payment webhooks
type WebhookService struct {
	parser    CheckoutParser
	finalizer Finalizer
	fulfiller Fulfiller
	seen      shared.IdempotencyStore
	metrics   *telemetry.PolicyMetrics
	logger    *zap.Logger
}

// WebhookServiceConfig contains dependencies for WebhookService
type WebhookServiceConfig struct {
	Parser    CheckoutParser
	Finalizer Finalizer
	Fulfiller Fulfiller
	// Seen short-circuits repeated deliveries of one event id
	Seen    shared.IdempotencyStore
	Metrics *telemetry.PolicyMetrics
	Logger  *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		parser:    cfg.Parser,
		finalizer: cfg.Finalizer,
		fulfiller: cfg.Fulfiller,
		seen:      cfg.Seen,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// webhookEventKey marks an event whose policy is committed
func webhookEventKey(eventID string) string {
	return "stripe:event:" + eventID
}

// webhookInFlightKey is held while one instance processes an event
func webhookInFlightKey(eventID string) string {
	return "stripe:event:" + eventID + ":inflight"
}

// HandleCheckout verifies a delivery and, for a paid checkout, finalizes and
// fulfills the policy. Errors from verification and finalization are
// returned so the caller can reject the delivery; fulfillment errors are
// logged and reported in the result only.
//
// An event counts as processed only once its policy is committed. While a
// delivery is being worked on, concurrent copies get ErrDeliveryInProgress;
// that claim expires quickly so a crashed instance cannot swallow retries.
func (s *WebhookService) HandleCheckout(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := s.parser.Parse(payload, signature)
	if err != nil {
		s.metrics.RecordWebhook(ctx, "unknown", telemetry.OutcomeRejected)
		return nil, err
	}

	result := &WebhookResult{EventID: event.EventID, EventType: event.EventType}
	log := s.logger.With(
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType))

	if !event.Fulfillable {
		log.Debug("Ignoring webhook event")
		s.metrics.RecordWebhook(ctx, event.EventType, telemetry.OutcomeIgnored)
		result.Ignored = true
		return result, nil
	}

	dedupe := s.seen != nil && event.EventID != ""
	if dedupe {
		done, err := s.seen.IsProcessed(ctx, webhookEventKey(event.EventID))
		switch {
		case err != nil:
			log.Warn("Idempotency store unavailable, relying on payment key", zap.Error(err))
			dedupe = false
		case done:
			log.Info("Duplicate webhook delivery skipped")
			s.metrics.RecordWebhook(ctx, event.EventType, telemetry.OutcomeDuplicate)
			result.Duplicate = true
			return result, nil
		}
	}

	if dedupe {
		inFlight := webhookInFlightKey(event.EventID)
		token, fresh, err := s.seen.Claim(ctx, inFlight, webhookInFlightTTL)
		switch {
		case err != nil:
			log.Warn("Idempotency store unavailable, relying on payment key", zap.Error(err))
			dedupe = false
		case !fresh:
			// Not acknowledged, so the provider retries once the holder is done or gone.
			log.Info("Webhook delivery already in flight")
			s.metrics.RecordWebhook(ctx, event.EventType, telemetry.OutcomeInProgress)
			return nil, policy.ErrDeliveryInProgress
		default:
			defer func() {
				if rerr := s.seen.Release(context.WithoutCancel(ctx), inFlight, token); rerr != nil {
					log.Warn("Failed to release webhook delivery claim", zap.Error(rerr))
				}
			}()
		}
	}

	finalized, err := s.finalizer.Finalize(ctx, event.Input)
	if err != nil {
		s.metrics.RecordWebhook(ctx, event.EventType, telemetry.OutcomeRejected)
		return nil, err
	}

	// The policy row is committed; later deliveries of this event are duplicates.
	if dedupe {
		if _, _, err := s.seen.Claim(ctx, webhookEventKey(event.EventID), webhookDedupeTTL); err != nil {
			log.Warn("Failed to record processed webhook event", zap.Error(err))
		}
	}
	result.PolicyNumber = finalized.Policy.PolicyNumber
	result.Created = finalized.Created

	if _, err := s.fulfiller.Fulfill(ctx, finalized.Policy.ID); err != nil {
		log.Error("Fulfillment failed after finalize",
			zap.String("policy_number", finalized.Policy.PolicyNumber),
			zap.Error(err))
		result.FulfillmentError = err.Error()
	}

	s.metrics.RecordWebhook(ctx, event.EventType, telemetry.OutcomeProcessed)
	log.Info("Checkout processed",
		zap.String("policy_number", result.PolicyNumber),
		zap.Bool("created", result.Created))
	return result, nil
}

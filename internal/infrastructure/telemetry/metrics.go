package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by the policy metrics
var (
	AttrOutcome   = attribute.Key("outcome")
	AttrEventType = attribute.Key("event_type")
	AttrDocKind   = attribute.Key("document_kind")
	AttrReason    = attribute.Key("reason")
	AttrSource    = attribute.Key("source")
)

// Outcome labels
const (
	OutcomeCreated    = "created"
	OutcomeExisting   = "existing"
	OutcomeCompleted  = "completed"
	OutcomeInProgress = "in_progress"
	OutcomeFailed     = "failed"
	OutcomeProcessed  = "processed"
	OutcomeDuplicate  = "duplicate"
	OutcomeIgnored    = "ignored"
	OutcomeRejected   = "rejected"
)

var fulfillmentBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120}

// PolicyMetrics records business counters for the purchase pipeline.
// A nil *PolicyMetrics is valid and records nothing.
type PolicyMetrics struct {
	finalized           metric.Int64Counter
	numberCollisions    metric.Int64Counter
	fulfillments        metric.Int64Counter
	fulfillmentDuration metric.Float64Histogram
	documents           metric.Int64Counter
	emails              metric.Int64Counter
	webhookEvents       metric.Int64Counter
	vehicleLookups      metric.Int64Counter
}

// NewPolicyMetrics creates the instruments on meter
func NewPolicyMetrics(meter metric.Meter) (*PolicyMetrics, error) {
	m := &PolicyMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.finalized, "policy.finalized", "Finalize calls by outcome"},
		{&m.numberCollisions, "policy.number_collisions", "Policy number insert collisions"},
		{&m.fulfillments, "policy.fulfillments", "Fulfillment runs by outcome"},
		{&m.documents, "policy.documents_generated", "Documents rendered and stored"},
		{&m.emails, "policy.emails_sent", "Document emails sent by reason"},
		{&m.webhookEvents, "payment.webhook_events", "Payment webhook deliveries by result"},
		{&m.vehicleLookups, "vehicle.lookups", "Vehicle lookups by source and outcome"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1")); err != nil {
			return nil, fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	m.fulfillmentDuration, err = meter.Float64Histogram("policy.fulfillment.duration",
		metric.WithDescription("Time to render, store and email policy documents"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(fulfillmentBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fulfillment histogram: %w", err)
	}
	return m, nil
}

// RecordFinalize counts a finalize call; outcome is OutcomeCreated or OutcomeExisting
func (m *PolicyMetrics) RecordFinalize(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.finalized.Add(ctx, 1, metric.WithAttributes(AttrOutcome.String(outcome)))
}

// RecordNumberCollision counts a policy number that was already taken
func (m *PolicyMetrics) RecordNumberCollision(ctx context.Context) {
	if m == nil {
		return
	}
	m.numberCollisions.Add(ctx, 1)
}

// RecordFulfillment counts a fulfillment run and its duration
func (m *PolicyMetrics) RecordFulfillment(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrOutcome.String(outcome))
	m.fulfillments.Add(ctx, 1, attrs)
	m.fulfillmentDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordDocument counts a stored document
func (m *PolicyMetrics) RecordDocument(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.documents.Add(ctx, 1, metric.WithAttributes(AttrDocKind.String(kind)))
}

// RecordEmail counts a sent email; reason is "initial" or "resend"
func (m *PolicyMetrics) RecordEmail(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.emails.Add(ctx, 1, metric.WithAttributes(AttrReason.String(reason)))
}

// RecordWebhook counts a webhook delivery
func (m *PolicyMetrics) RecordWebhook(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(
		AttrEventType.String(eventType),
		AttrOutcome.String(outcome),
	))
}

// RecordVehicleLookup counts a lookup; source is "cache" or "registry"
func (m *PolicyMetrics) RecordVehicleLookup(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}
	m.vehicleLookups.Add(ctx, 1, metric.WithAttributes(
		AttrSource.String(source),
		AttrOutcome.String(outcome),
	))
}

// Package vehicle serves registration lookups for the quote flow.
package vehicle

import (
	"context"
	"errors"
	"fmt"

	"github.com/tempcover/backend/internal/domain/vehicle"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	sourceCache    = "cache"
	sourceRegistry = "registry"
)

// LookupService resolves registrations through the cache and then the registry
type LookupService struct {
	registry vehicle.Registry
	cache    vehicle.Cache
	metrics  *telemetry.PolicyMetrics
	logger   *zap.Logger
}

// LookupServiceConfig holds LookupService dependencies. Cache may be nil.
type LookupServiceConfig struct {
	Registry vehicle.Registry
	Cache    vehicle.Cache
	Metrics  *telemetry.PolicyMetrics
	Logger   *zap.Logger
}

// NewLookupService creates a new LookupService
func NewLookupService(cfg LookupServiceConfig) *LookupService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupService{
		registry: cfg.Registry,
		cache:    cfg.Cache,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Lookup returns the vehicle summary for a registration mark.
// Cache failures are logged and never fail the lookup.
func (s *LookupService) Lookup(ctx context.Context, raw string) (summary *vehicle.Summary, err error) {
	reg, err := vehicle.NormalizeRegistration(raw)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "vehicle.lookup", attribute.String("vehicle.registration", reg))
	defer func() { telemetry.EndSpan(span, err) }()

	log := s.logger.With(zap.String("registration", reg))

	if s.cache != nil {
		cached, ok, cerr := s.cache.Get(ctx, reg)
		switch {
		case cerr != nil:
			log.Warn("Vehicle cache read failed", zap.Error(cerr))
		case ok:
			s.metrics.RecordVehicleLookup(ctx, sourceCache, telemetry.OutcomeExisting)
			return cached, nil
		}
	}

	summary, err = s.registry.Lookup(ctx, reg)
	if err != nil {
		outcome := telemetry.OutcomeFailed
		if errors.Is(err, vehicle.ErrVehicleNotFound) {
			outcome = telemetry.OutcomeIgnored
		}
		s.metrics.RecordVehicleLookup(ctx, sourceRegistry, outcome)
		if errors.Is(err, vehicle.ErrVehicleNotFound) || errors.Is(err, vehicle.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("vehicle lookup: %w", err)
	}
	s.metrics.RecordVehicleLookup(ctx, sourceRegistry, telemetry.OutcomeCompleted)

	if s.cache != nil {
		if cerr := s.cache.Set(ctx, reg, summary); cerr != nil {
			log.Warn("Vehicle cache write failed", zap.Error(cerr))
		}
	}
	return summary, nil
}

package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"github.com/tempcover/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()

	p, err := telemetry.Setup(ctx, config.TelemetryConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Equal(t, "tempcover-backend", p.ServiceName())
	assert.NotNil(t, p.Tracer("test"))
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestBridgeLogger_DisabledReturnsBase(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{}, nil)
	require.NoError(t, err)

	base := zap.NewNop()
	assert.Same(t, base, p.BridgeLogger(base, zapcore.InfoLevel))
}

func TestSetup_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping collector test in short mode")
	}

	ctx := context.Background()
	cfg := config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1,
		ServiceName:       "tempcover-test",
		Insecure:          true,
	}

	// gRPC exporters dial lazily, so setup succeeds without a collector.
	p, err := telemetry.Setup(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	bridged := p.BridgeLogger(zaptest.NewLogger(t), zapcore.InfoLevel)
	bridged.Info("bridged record")

	_, span := p.Tracer("test").Start(ctx, "op")
	span.End()

	shutdownCtx, cancel := context.WithCancel(ctx)
	cancel()
	// Export to the absent collector fails; only check it returns.
	_ = p.Shutdown(shutdownCtx)
}

package telemetry

import (
	"context"
	"testing"

	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisabledTelemetryIsNoOp(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{
		Enabled: false,
	}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestEnabledTelemetryCreatesProvider(t *testing.T) {
	// The OTLP gRPC exporter connects lazily, so construction succeeds
	// even without a collector listening.
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     0.5,
		ServiceName:       "gateway-test",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.True(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
}

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

const (
	testApp     = "beaconrunner-test"
	testVersion = "1.0.0"
)

// TestInitialize verifies that Initialize returns a valid shutdown function.
func TestInitialize(t *testing.T) {
	t.Parallel()

	shutdown, err := Initialize(testApp, testVersion)

	require.NoError(t, err)
	require.NotNil(t, shutdown)

	require.NoError(t, shutdown(context.Background()))
}

// TestInitializeWithMetrics verifies that Initialize with metrics option sets up the meter provider.
func TestInitializeWithMetrics(t *testing.T) {
	t.Parallel()

	originalProvider := otel.GetMeterProvider()
	defer otel.SetMeterProvider(originalProvider)

	shutdown, err := Initialize(testApp, testVersion, WithMetrics())

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NotEqual(t, originalProvider, otel.GetMeterProvider())

	require.NoError(t, shutdown(context.Background()))
}

// TestInitializeWithTraces verifies that Initialize with traces option sets up the tracer provider.
func TestInitializeWithTraces(t *testing.T) {
	t.Parallel()

	originalProvider := otel.GetTracerProvider()
	defer otel.SetTracerProvider(originalProvider)

	shutdown, err := Initialize(testApp, testVersion, WithTraces())

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NotEqual(t, originalProvider, otel.GetTracerProvider())

	require.NoError(t, shutdown(context.Background()))
}

// TestInitializeShutdown verifies the returned shutdown function returns nil.
func TestInitializeShutdown(t *testing.T) {
	t.Parallel()

	shutdown, err := Initialize(testApp, testVersion)

	require.NoError(t, err)

	err = shutdown(context.Background())

	require.NoError(t, err)
}

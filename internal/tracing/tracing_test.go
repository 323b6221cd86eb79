package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetupNoopWhenDisabled(t *testing.T) {
	for _, cfg := range []Config{
		{Enabled: false, Endpoint: "http://localhost:4318"},
		{Enabled: true, Endpoint: ""},
	} {
		shutdown, err := Setup(context.Background(), cfg)
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, shutdown(ctx))
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	shutdown, err := Setup(context.Background(), Config{Enabled: true, Endpoint: "http://192.0.2.1:4318", ServiceName: "lingua-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestProviderCarriesServiceName(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := newProvider(context.Background(), Config{ServiceName: "lingua-test"}, sdktrace.WithSpanProcessor(rec))
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "invocation.execute")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "invocation.execute", ended[0].Name())
	assert.Contains(t, ended[0].Resource().Attributes(), attribute.String("service.name", "lingua-test"))
}

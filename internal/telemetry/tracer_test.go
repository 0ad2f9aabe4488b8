package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelrec/internal/config"
)

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), "recommendation-service", config.TracingConfig{})
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestInitTracer_Enabled(t *testing.T) {
	// The exporter connects lazily, so no collector is needed here.
	tp, err := InitTracer(context.Background(), "recommendation-service", config.TracingConfig{
		Enabled:      true,
		Endpoint:     "localhost:4318",
		Environment:  "test",
		SamplingRate: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer("test").Start(context.Background(), "span")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tp.Shutdown(ctx)
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("collector:4318"), 2)
	assert.Len(t, exporterOptions("http://collector:4318"), 1)
}

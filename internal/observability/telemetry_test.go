package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTelemetryWithoutExporter(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitTelemetry(ctx, "voxel-test", "")
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(ctx, "probe")
	assert.True(t, span.SpanContext().IsValid(), "Провайдер SDK выдаёт настоящие спаны")
	span.End()

	assert.NoError(t, shutdown(ctx))
}

package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoneycombSetup_Disabled(t *testing.T) {
	shutdown, err := HoneycombSetup(false, "phone-tracker-test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()

	// global tracer stays usable without any SDK configured
	_, span := GlobalTracer.Start(context.Background(), "test.span")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}

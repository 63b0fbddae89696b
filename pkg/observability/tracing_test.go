package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	UseProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	return rec
}

func TestTrace(t *testing.T) {
	rec := withRecorder(t)

	err := Trace(context.Background(), "tables.dump", func(ctx context.Context, span *Span) error {
		span.SetAttribute("path", "out.trees")
		span.SetAttribute("edges", 12)
		span.SetAttribute("compressed", true)
		return nil
	})
	require.NoError(t, err)

	failure := errors.Coded(errors.CodeFileFormat)
	err = Trace(context.Background(), "tables.load", func(context.Context, *Span) error {
		return failure
	})
	assert.Equal(t, failure, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "tables.dump", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Len(t, spans[0].Attributes(), 3)
	assert.Equal(t, "tables.load", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestNestedSpans(t *testing.T) {
	rec := withRecorder(t)

	ctx, parent := StartSpan(context.Background(), "cli.simplify")
	_, child := StartSpan(ctx, "tables.load")
	child.End()
	parent.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestInitializeExportsSpans(t *testing.T) {
	var out bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &out
	require.NoError(t, Initialize(cfg))

	_, span := StartSpan(context.Background(), "tables.sort")
	span.End()
	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, out.String(), "tables.sort")

	require.NoError(t, Shutdown(context.Background()))
}

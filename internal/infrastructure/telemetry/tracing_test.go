package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/khata/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newSpanRecorder installs an in-memory recorder as the global provider
// and restores the previous one on cleanup.
func newSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func recordedAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartSpan(t *testing.T) {
	sr := newSpanRecorder(t)

	ctx, span := telemetry.StartSpan(context.Background(), "allocate_payment",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, "merchant-7"),
		telemetry.WithSpanKind(trace.SpanKindInternal),
	)
	require.NotNil(t, span)
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "allocate_payment", spans[0].Name())
	attrs := recordedAttrs(spans[0])
	assert.Equal(t, "merchant-7", attrs[attribute.Key(telemetry.SpanAttrTenantID)].AsString())
}

func TestStartServiceSpan_NamesSpan(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "ledger", "record_bill")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.record_bill", spans[0].Name())
}

func TestSetAttributes_Pairs(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_payment")
	billID := uuid.New()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillID, billID,
		telemetry.SpanAttrAmount, decimal.NewFromInt(250),
		telemetry.SpanAttrCreditApplied, true,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := recordedAttrs(spans[0])
	assert.Equal(t, billID.String(), attrs[attribute.Key(telemetry.SpanAttrBillID)].AsString())
	assert.Equal(t, "250", attrs[attribute.Key(telemetry.SpanAttrAmount)].AsString())
	assert.True(t, attrs[attribute.Key(telemetry.SpanAttrCreditApplied)].AsBool())
}

func TestSetAttributes_DropsOddTrailingKey(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_payment")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerID, "c-1",
		telemetry.SpanAttrSurplus,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := recordedAttrs(spans[0])
	assert.Equal(t, "c-1", attrs[attribute.Key(telemetry.SpanAttrCustomerID)].AsString())
	_, ok := attrs[attribute.Key(telemetry.SpanAttrSurplus)]
	assert.False(t, ok)
}

func TestRecordError(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_bill")
	telemetry.RecordError(span, errors.New("customer not found"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "customer not found", spans[0].Status().Description)

	var sawException bool
	for _, ev := range spans[0].Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	assert.True(t, sawException)
}

func TestRecordError_NilSafe(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_bill")
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	telemetry.RecordError(nil, errors.New("ignored"))
}

func TestSetOK(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_payment")
	telemetry.SetOK(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_payment")
	telemetry.AddEvent(span, "credit_carried_forward",
		telemetry.SpanAttrSurplus, decimal.NewFromInt(40))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	ev := spans[0].Events()[0]
	assert.Equal(t, "credit_carried_forward", ev.Name)
	require.Len(t, ev.Attributes, 1)
	assert.Equal(t, "40", ev.Attributes[0].Value.AsString())
}

func TestTraceAndSpanIDs(t *testing.T) {
	newSpanRecorder(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "record_bill")
	defer span.End()
	assert.Len(t, telemetry.GetTraceID(ctx), 32)
	assert.Len(t, telemetry.GetSpanID(ctx), 16)
}

func TestContextSpanRoundTrip(t *testing.T) {
	newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_bill")
	defer span.End()

	ctx := telemetry.ContextWithSpan(context.Background(), span)
	got := telemetry.SpanFromContext(ctx)
	assert.Equal(t, span.SpanContext().SpanID(), got.SpanContext().SpanID())
}

func TestNestedSpans_ShareTraceID(t *testing.T) {
	sr := newSpanRecorder(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "ledger", "record_payment")
	_, child := telemetry.StartSpan(ctx, "allocate_fifo")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestAttributeConversions(t *testing.T) {
	sr := newSpanRecorder(t)

	_, span := telemetry.StartSpan(context.Background(), "record_payment")
	telemetry.SetAttributes(span,
		"count", 3,
		"count64", int64(9),
		"ratio", 0.75,
		"settled", true,
		"note", "partial",
		"id", uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := recordedAttrs(spans[0])
	assert.Equal(t, int64(3), attrs["count"].AsInt64())
	assert.Equal(t, int64(9), attrs["count64"].AsInt64())
	assert.Equal(t, 0.75, attrs["ratio"].AsFloat64())
	assert.True(t, attrs["settled"].AsBool())
	assert.Equal(t, "partial", attrs["note"].AsString())
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", attrs["id"].AsString())
}

func TestHelpers_NilSpanSafe(t *testing.T) {
	telemetry.SetAttributes(nil, telemetry.SpanAttrTenantID, "merchant-7")
	telemetry.SetAttribute(nil, telemetry.SpanAttrTenantID, "merchant-7")
	telemetry.SetOK(nil)
	telemetry.AddEvent(nil, "ignored")
}

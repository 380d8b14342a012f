package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "ecommerce.product.created", Topic("product", "created"))
}

func TestNewEvent_AndDecode(t *testing.T) {
	ev, err := NewEvent("product.updated", "3", "product", "product-service", map[string]any{"name": "Lace Bodysuit"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)

	raw, err := ev.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID, decoded.EventID)

	var data struct {
		Name string `json:"name"`
	}
	require.NoError(t, decoded.UnmarshalData(&data))
	assert.Equal(t, "Lace Bodysuit", data.Name)
}

func TestUnmarshalEvent_Rejects(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{"))
	assert.Error(t, err)

	_, err = UnmarshalEvent([]byte(`{"event_id":"1"}`))
	assert.ErrorContains(t, err, "missing event_type")
}

func TestUnmarshalData_Empty(t *testing.T) {
	ev := &Event{EventID: "e1"}
	assert.ErrorContains(t, ev.UnmarshalData(&struct{}{}), "has no data")
}

func TestHeaderCarrier(t *testing.T) {
	msg := kafka.Message{Headers: []kafka.Header{{Key: "existing", Value: []byte("v1")}}}
	c := NewHeaderCarrier(&msg)

	assert.Equal(t, "v1", c.Get("existing"))
	assert.Empty(t, c.Get("missing"))

	c.Set("existing", "v2")
	c.Set("new", "v3")
	assert.Equal(t, "v2", c.Get("existing"))
	assert.ElementsMatch(t, []string{"existing", "new"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
}

func TestHeaderCarrier_TraceContextRoundTrip(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	var msg kafka.Message
	prop := propagation.TraceContext{}
	prop.Inject(ctx, NewHeaderCarrier(&msg))

	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), NewHeaderCarrier(&msg)))
	assert.Equal(t, traceID, extracted.TraceID())
	assert.True(t, extracted.IsRemote())
}

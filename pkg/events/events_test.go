package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestEncode(t *testing.T) {
	event := SwapEvent{
		Chain:     "solana",
		Wallet:    "Wallet111",
		AmountIn:  "1000000",
		TxID:      "sig",
		Explorer:  "https://solscan.io/tx/sig",
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
	data, err := Encode(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sig", decoded["txid"])
	assert.Equal(t, "solana", decoded["chain"])
	assert.NotContains(t, decoded, "amountOut")

	_, err = Encode(SwapEvent{Chain: "solana"})
	assert.Error(t, err)
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{})
	assert.Error(t, err)

	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopic, p.writer.Topic)
	require.NoError(t, p.Close())
}

func TestInjectHeadersCarriesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	headers := []kafka.Header{}
	InjectHeaders(ctx, &headers)

	require.Len(t, headers, 1)
	assert.Equal(t, "traceparent", headers[0].Key)
	assert.Contains(t, string(headers[0].Value), "4bf92f3577b34da6a3ce929d0e0e4736")
}

package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}

func TestExtractEventMetaFallbacks(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "booking.cancelled.v1", Key: []byte("b-1")})
	if meta.EventID != "booking.cancelled.v1/b-1" || meta.EventType != "booking.cancelled.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestNewMessageCarriesTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const tp = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier{"traceparent": tp})

	msg := NewMessage(ctx, EventMeta{EventID: "e-1", EventType: "booking.created.v1"}, "host-1", []byte(`{}`))
	if msg.Topic != "booking.created.v1" || HeaderValue(msg.Headers, HeaderEventID) != "e-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if HeaderValue(msg.Headers, "traceparent") != tp {
		t.Fatalf("expected traceparent header, got %q", HeaderValue(msg.Headers, "traceparent"))
	}

	back := ExtractEventMeta(msg)
	if back.EventID != "e-1" {
		t.Fatalf("expected e-1, got %q", back.EventID)
	}
}

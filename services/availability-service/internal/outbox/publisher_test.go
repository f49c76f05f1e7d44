package outbox

import (
	"context"
	"testing"

	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestBuildMessages(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	const tp = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	msgs := BuildMessages(context.Background(), []Record{{
		ID: 7,
		Event: Event{
			EventID:     "evt-1",
			AggregateID: "host-1",
			EventType:   TopicBookingCreated,
			Payload:     []byte(`{"booking_id":"b-1"}`),
		},
		Traceparent: tp,
	}})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Topic != TopicBookingCreated || string(msg.Key) != "host-1" {
		t.Fatalf("unexpected topic/key %s %s", msg.Topic, msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-1" {
		t.Fatal("missing event id header")
	}
	if kafkax.HeaderValue(msg.Headers, "traceparent") != tp {
		t.Fatalf("expected stored trace restored, got %q", kafkax.HeaderValue(msg.Headers, "traceparent"))
	}
}

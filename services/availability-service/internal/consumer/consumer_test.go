package consumer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/md-rashed-zaman/slotengine/libs/kafkax"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/inbox"
	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
	"github.com/segmentio/kafka-go"
)

type sliceReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error { return nil }

type recordingInvalidator struct {
	mu    sync.Mutex
	hosts []string
}

func (r *recordingInvalidator) InvalidateHost(_ context.Context, hostID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = append(r.hosts, hostID)
	return nil
}

func cancelled(eventID, hostID string) kafka.Message {
	return kafkax.NewMessage(context.Background(),
		kafkax.EventMeta{EventID: eventID, EventType: outbox.TopicBookingCancelled},
		"b-1", []byte(`{"booking_id":"b-1","host_id":"`+hostID+`"}`))
}

func TestConsumerDeduplicatesAndInvalidates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv := &recordingInvalidator{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &sliceReader{
		msgs: []kafka.Message{
			cancelled("e1", "h1"),
			cancelled("e1", "h1"),
			cancelled("e2", "h2"),
			{Topic: outbox.TopicBookingCancelled, Value: []byte(`not json`)},
		},
		cancel: cancel,
	}
	c := NewWithReader(logger, inbox.NewMemory(), reader, CancellationHandler(inv, logger))
	c.Run(ctx)

	if len(inv.hosts) != 2 || inv.hosts[0] != "h1" || inv.hosts[1] != "h2" {
		t.Fatalf("expected h1 then h2 invalidated once each, got %v", inv.hosts)
	}
}

func TestCancellationHandlerRejectsMissingHost(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := CancellationHandler(&recordingInvalidator{}, logger)
	err := h(context.Background(), kafka.Message{Topic: outbox.TopicBookingCancelled, Value: []byte(`{"booking_id":"b"}`)})
	if err == nil {
		t.Fatal("expected error for missing host_id")
	}
}

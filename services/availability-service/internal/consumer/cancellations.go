package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotengine/services/availability-service/internal/outbox"
	"github.com/segmentio/kafka-go"
)

// Invalidator drops cached availability for a host.
type Invalidator interface {
	InvalidateHost(ctx context.Context, hostID string) error
}

// CancellationHandler refreshes availability when a booking is cancelled
// elsewhere, so the freed slot is offered again.
func CancellationHandler(inv Invalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt outbox.BookingCancelled
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Topic, err)
		}
		if evt.HostID == "" {
			return fmt.Errorf("decode %s: missing host_id", msg.Topic)
		}
		if err := inv.InvalidateHost(ctx, evt.HostID); err != nil {
			return fmt.Errorf("invalidate host %s: %w", evt.HostID, err)
		}
		logger.Info("availability invalidated", "host_id", evt.HostID, "booking_id", evt.BookingID)
		return nil
	}
}

package outbox

import "time"

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	// TopicBookingCreated is published after a booking is admitted.
	TopicBookingCreated = "booking.created.v1"
	// TopicBookingCancelled is produced by whoever owns cancellation.
	TopicBookingCancelled = "booking.cancelled.v1"
)

type BookingCreated struct {
	BookingID      string    `json:"booking_id"`
	HostID         string    `json:"host_id"`
	EventTypeID    string    `json:"event_type_id"`
	GuestName      string    `json:"guest_name"`
	GuestEmail     string    `json:"guest_email"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	BookerTimezone string    `json:"booker_timezone"`
}

type BookingCancelled struct {
	BookingID string `json:"booking_id"`
	HostID    string `json:"host_id"`
}

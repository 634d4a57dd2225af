package model

import "time"

// Event types carried by outbox entries. The routing key on the wire is the
// booking reference so one booking's events stay ordered per partition.
const (
	EventBookingCreated   = "booking.created"
	EventBookingDeparted  = "booking.departed"
	EventBookingArrived   = "booking.arrived"
	EventBookingDelivered = "booking.delivered"
	EventBookingCancelled = "booking.cancelled"
)

// OutboxEntry records that a domain event must be published. It is created
// in the same transaction as the booking write it describes, so a crash
// after commit never loses the signal that an event is owed.
// PublishedAt == nil means undelivered.
type OutboxEntry struct {
	ID          string     `json:"id" bson:"_id"`
	BookingRef  string     `json:"booking_ref" bson:"booking_ref"`
	EventType   string     `json:"event_type" bson:"event_type"`
	Payload     []byte     `json:"payload" bson:"payload"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	PublishedAt *time.Time `json:"published_at,omitempty" bson:"published_at"`
}

// EventTypeForStatus maps a committed status to its outbox event type.
func EventTypeForStatus(status BookingStatus) string {
	switch status {
	case StatusDeparted:
		return EventBookingDeparted
	case StatusArrived:
		return EventBookingArrived
	case StatusDelivered:
		return EventBookingDelivered
	case StatusCancelled:
		return EventBookingCancelled
	default:
		return EventBookingCreated
	}
}

package model

import (
	"time"
)

type Booking struct {
	ID          string        `json:"id,omitempty" bson:"_id,omitempty"`
	RefID       string        `json:"ref_id" bson:"ref_id" validate:"omitempty,booking_ref"`
	Origin      string        `json:"origin" bson:"origin" validate:"required,len=3,alpha,uppercase"`
	Destination string        `json:"destination" bson:"destination" validate:"required,len=3,alpha,uppercase,necsfield=Origin"`
	Pieces      int           `json:"pieces" bson:"pieces" validate:"required,min=1,max=10000"`
	WeightKg    float64       `json:"weight_kg" bson:"weight_kg" validate:"required,gt=0"`
	Status      BookingStatus `json:"status" bson:"status" validate:"omitempty,booking_status"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" bson:"updated_at"`
}

// StatusUpdate is a single requested transition for one booking.
type StatusUpdate struct {
	RefID  string        `json:"ref_id" validate:"required,booking_ref"`
	Status BookingStatus `json:"status" validate:"required,booking_status"`
}

// BulkCreateResult aggregates the outcome of a bulk creation call.
// One item's failure never aborts its siblings.
type BulkCreateResult struct {
	Successful []*Booking  `json:"successful"`
	Failed     []BulkError `json:"failed"`
	TimeMS     int64       `json:"processing_time_ms"`
}

// BulkStatusResult aggregates the outcome of a bulk status update call.
// Skipped items were well-formed but inapplicable given current booking
// state; Failed items hit lock contention or storage errors.
type BulkStatusResult struct {
	Successful []*Booking  `json:"successful"`
	Failed     []BulkError `json:"failed"`
	Skipped    []BulkError `json:"skipped"`
	TimeMS     int64       `json:"processing_time_ms"`
}

type BulkError struct {
	Index  int    `json:"index"`
	RefID  string `json:"ref_id,omitempty"`
	Reason string `json:"reason"`
}

package model

import (
	"fmt"
	"net/http"
)

// BookingStatus represents the current position of a booking in its
// lifecycle. Transitions are monotonic along the graph below; there is no
// way back once a terminal status is reached.
type BookingStatus string

const (
	StatusBooked    BookingStatus = "BOOKED"
	StatusDeparted  BookingStatus = "DEPARTED"
	StatusArrived   BookingStatus = "ARRIVED"
	StatusDelivered BookingStatus = "DELIVERED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// validTransitions is the authoritative transition table. Cancellation is
// only reachable from BOOKED and DEPARTED.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusBooked:    {StatusDeparted, StatusCancelled},
	StatusDeparted:  {StatusArrived, StatusCancelled},
	StatusArrived:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// TransitionError reports a requested transition that is not in the table.
// It is a semantic misuse of the API (4xx class), never retried.
type TransitionError struct {
	Current   BookingStatus
	Requested BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.Current, e.Requested)
}

func (e *TransitionError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

// NextValidStatuses returns the set of statuses reachable from current.
// The returned slice is a copy; callers may mutate it freely.
func NextValidStatuses(current BookingStatus) []BookingStatus {
	allowed, ok := validTransitions[current]
	if !ok {
		return nil
	}
	out := make([]BookingStatus, len(allowed))
	copy(out, allowed)
	return out
}

// ValidateTransition checks the requested transition against the table.
// The state machine is pure: lock discipline is the caller's responsibility.
func ValidateTransition(current, requested BookingStatus) error {
	allowed, ok := validTransitions[current]
	if !ok {
		return &TransitionError{Current: current, Requested: requested}
	}
	for _, s := range allowed {
		if s == requested {
			return nil
		}
	}
	return &TransitionError{Current: current, Requested: requested}
}

func (s BookingStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return true
	}
	return len(allowed) == 0
}

// CanCancel reports whether cancellation is still permitted.
func (s BookingStatus) CanCancel() bool {
	return ValidateTransition(s, StatusCancelled) == nil
}

func (s BookingStatus) String() string {
	return string(s)
}

func ParseBookingStatus(raw string) (BookingStatus, error) {
	status := BookingStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown booking status: %q", raw)
	}
	return status, nil
}

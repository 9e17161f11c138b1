package models

import "time"

// EventKind names a ledger mutation.
type EventKind string

const (
	DriverRegistered EventKind = "driver.registered"
	RideMatched      EventKind = "ride.matched"
	RideCompleted    EventKind = "ride.completed"
	RideUndone       EventKind = "ride.undone"
	RideCancelled    EventKind = "ride.cancelled" // busy driver re-registered
)

// Event is what the dispatch service publishes after every successful mutation.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	RideID    uint64    `json:"ride_id,omitempty"`
	Passenger string    `json:"passenger,omitempty"`
	Driver    string    `json:"driver"`
	At        time.Time `json:"at"`
}

// DriverStats is the per-driver summary the consumer keeps in Redis.
type DriverStats struct {
	Driver        string    `json:"driver"`
	LastKind      EventKind `json:"last_kind"`
	LastPassenger string    `json:"last_passenger"`
	Updated       time.Time `json:"updated"`
}

// StatsFromEvent summarises ev as the latest activity of its driver.
func StatsFromEvent(ev Event) DriverStats {
	return DriverStats{Driver: ev.Driver, LastKind: ev.Kind, LastPassenger: ev.Passenger, Updated: ev.At}
}

// HashFields returns the Redis hash fields for the summary. The driver name is
// part of the hash key and is not repeated.
func (s DriverStats) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"last_kind":      string(s.LastKind),
		"last_passenger": s.LastPassenger,
		"updated":        s.Updated.UTC().Format(time.RFC3339),
	}
}

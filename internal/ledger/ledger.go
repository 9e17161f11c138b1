package ledger

import "errors"

var (
	ErrNoDriverAvailable = errors.New("no drivers available")
	ErrQueueEmpty        = errors.New("no scheduled rides")
	ErrNothingToUndo     = errors.New("no ride requests to undo")
)

// Driver is a snapshot of a registered driver.
type Driver struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Ride pairs a passenger with the driver matched to them.
// ID is unique within one Ledger and increases with every request.
type Ride struct {
	ID        uint64 `json:"id"`
	Passenger string `json:"passenger"`
	Driver    string `json:"driver"`
}

// Ledger owns drivers, the scheduled queue, the undo history and the
// completed log. It is not safe for concurrent use; callers that share a
// Ledger between goroutines must serialise every call.
//
// The scheduled queue is a slice in request order. Undo removes by id with a
// linear scan, so undo and completion are O(n) in the number of pending rides.
type Ledger struct {
	order     []string
	available map[string]bool
	queue     []Ride
	undo      []uint64
	completed []Ride
	nextID    uint64
}

func New() *Ledger {
	return &Ledger{available: make(map[string]bool)}
}

// RegisterDriver marks name as available, adding it at the end of the
// registration order if it is new. Re-registering a busy driver cancels its
// pending ride, which is returned with ok set.
func (l *Ledger) RegisterDriver(name string) (cancelled Ride, ok bool) {
	avail, exists := l.available[name]
	if !exists {
		l.order = append(l.order, name)
	}
	l.available[name] = true
	if !exists || avail {
		return Ride{}, false
	}
	for i, r := range l.queue {
		if r.Driver == name {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			l.dropUndo(r.ID)
			return r, true
		}
	}
	return Ride{}, false
}

// RequestRide matches passenger with the earliest-registered available driver.
func (l *Ledger) RequestRide(passenger string) (Ride, error) {
	for _, name := range l.order {
		if !l.available[name] {
			continue
		}
		l.available[name] = false
		l.nextID++
		r := Ride{ID: l.nextID, Passenger: passenger, Driver: name}
		l.queue = append(l.queue, r)
		l.undo = append(l.undo, r.ID)
		return r, nil
	}
	return Ride{}, ErrNoDriverAvailable
}

// CompleteRide finishes the oldest scheduled ride.
func (l *Ledger) CompleteRide() (Ride, error) {
	if len(l.queue) == 0 {
		return Ride{}, ErrQueueEmpty
	}
	r := l.queue[0]
	l.queue[0] = Ride{}
	l.queue = l.queue[1:]
	l.available[r.Driver] = true
	l.completed = append(l.completed, r)
	l.dropUndo(r.ID)
	return r, nil
}

// UndoRequest reverses the most recent ride request that is still pending.
func (l *Ledger) UndoRequest() (Ride, error) {
	if len(l.undo) == 0 {
		return Ride{}, ErrNothingToUndo
	}
	id := l.undo[len(l.undo)-1]
	l.undo = l.undo[:len(l.undo)-1]
	for i, r := range l.queue {
		if r.ID != id {
			continue
		}
		l.queue = append(l.queue[:i], l.queue[i+1:]...)
		l.available[r.Driver] = true
		return r, nil
	}
	// unreachable while undo ids stay a subset of the queue
	return Ride{}, ErrNothingToUndo
}

func (l *Ledger) dropUndo(id uint64) {
	for i, u := range l.undo {
		if u == id {
			l.undo = append(l.undo[:i], l.undo[i+1:]...)
			return
		}
	}
}

// Drivers lists every driver in registration order.
func (l *Ledger) Drivers() []Driver {
	out := make([]Driver, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, Driver{Name: name, Available: l.available[name]})
	}
	return out
}

// Scheduled lists pending rides, oldest first.
func (l *Ledger) Scheduled() []Ride {
	return append([]Ride(nil), l.queue...)
}

// Completed lists finished rides in completion order.
func (l *Ledger) Completed() []Ride {
	return append([]Ride(nil), l.completed...)
}

// UndoHistory lists the rides that can still be undone, most recent last.
func (l *Ledger) UndoHistory() []Ride {
	out := make([]Ride, 0, len(l.undo))
	for _, id := range l.undo {
		for _, r := range l.queue {
			if r.ID == id {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// AvailableCount returns how many drivers can take a ride right now.
func (l *Ledger) AvailableCount() int {
	n := 0
	for _, a := range l.available {
		if a {
			n++
		}
	}
	return n
}

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/ride-dispatch/internal/models"
)

// Notifier delivers ledger events to one destination.
type Notifier interface {
	Notify(ctx context.Context, ev models.Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev models.Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev models.Event) error { return f(ctx, ev) }

// Named tags a notifier so fan-out errors and metrics can say which sink failed.
type Named struct {
	Name string
	Notifier
}

// Multi fans an event out to every sink. All sinks are tried; failures are joined.
type Multi []Named

func (m Multi) Notify(ctx context.Context, ev models.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, &SinkError{Sink: n.Name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// SinkError reports a delivery failure for one named sink.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string { return fmt.Sprintf("%s: %v", e.Sink, e.Err) }

func (e *SinkError) Unwrap() error { return e.Err }

package matcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/storage"
)

type Notifier interface {
	Notify(ctx context.Context, ev models.Event) error
}

// Service serialises access to one Ledger and fans every successful
// mutation out to the notifier and the event store. Sinks run after the
// lock is released and their failures never undo ledger state.
type Service struct {
	mu     sync.Mutex
	ledger *ledger.Ledger

	Dispatch Notifier           // optional
	Store    storage.EventStore // optional
	Logger   zerolog.Logger
	Now      func() time.Time
}

func NewService(l *ledger.Ledger, logger zerolog.Logger) *Service {
	if l == nil {
		l = ledger.New()
	}
	return &Service{ledger: l, Logger: logger, Now: time.Now}
}

func (s *Service) RegisterDriver(ctx context.Context, name string) (ledger.Ride, bool) {
	s.mu.Lock()
	cancelled, ok := s.ledger.RegisterDriver(name)
	s.gaugesLocked()
	s.mu.Unlock()

	s.Logger.Info().Str("driver", name).Msg("driver registered")
	s.emit(ctx, models.DriverRegistered, ledger.Ride{Driver: name})
	if ok {
		observability.RidesCancelledTotal.Inc()
		s.Logger.Warn().Uint64("ride_id", cancelled.ID).Str("passenger", cancelled.Passenger).
			Str("driver", cancelled.Driver).Msg("pending ride cancelled by re-registration")
		s.emit(ctx, models.RideCancelled, cancelled)
	}
	return cancelled, ok
}

func (s *Service) RequestRide(ctx context.Context, passenger string) (ledger.Ride, error) {
	s.mu.Lock()
	r, err := s.ledger.RequestRide(passenger)
	s.gaugesLocked()
	s.mu.Unlock()

	if err != nil {
		observability.RideRequestsTotal.WithLabelValues(outcome(err)).Inc()
		s.Logger.Info().Str("passenger", passenger).Err(err).Msg("ride request rejected")
		return r, err
	}
	observability.RideRequestsTotal.WithLabelValues("matched").Inc()
	s.Logger.Info().Uint64("ride_id", r.ID).Str("passenger", r.Passenger).Str("driver", r.Driver).Msg("ride matched")
	s.emit(ctx, models.RideMatched, r)
	return r, nil
}

func (s *Service) CompleteRide(ctx context.Context) (ledger.Ride, error) {
	s.mu.Lock()
	r, err := s.ledger.CompleteRide()
	s.gaugesLocked()
	s.mu.Unlock()

	if err != nil {
		s.Logger.Debug().Err(err).Msg("complete rejected")
		return r, err
	}
	observability.RidesCompletedTotal.Inc()
	s.Logger.Info().Uint64("ride_id", r.ID).Str("passenger", r.Passenger).Str("driver", r.Driver).Msg("ride completed")
	s.emit(ctx, models.RideCompleted, r)
	return r, nil
}

func (s *Service) UndoRequest(ctx context.Context) (ledger.Ride, error) {
	s.mu.Lock()
	r, err := s.ledger.UndoRequest()
	s.gaugesLocked()
	s.mu.Unlock()

	if err != nil {
		s.Logger.Debug().Err(err).Msg("undo rejected")
		return r, err
	}
	observability.RidesUndoneTotal.Inc()
	s.Logger.Info().Uint64("ride_id", r.ID).Str("passenger", r.Passenger).Str("driver", r.Driver).Msg("ride request undone")
	s.emit(ctx, models.RideUndone, r)
	return r, nil
}

func (s *Service) Drivers() []ledger.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Drivers()
}

func (s *Service) Scheduled() []ledger.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Scheduled()
}

func (s *Service) Completed() []ledger.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Completed()
}

func (s *Service) gaugesLocked() {
	observability.DriversAvailable.Set(float64(s.ledger.AvailableCount()))
	observability.QueueDepth.Set(float64(len(s.ledger.Scheduled())))
}

func (s *Service) emit(ctx context.Context, kind models.EventKind, r ledger.Ride) {
	if s.Dispatch == nil && s.Store == nil {
		return
	}
	ev := models.Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		RideID:    r.ID,
		Passenger: r.Passenger,
		Driver:    r.Driver,
		At:        s.Now().UTC(),
	}
	if s.Dispatch != nil {
		if err := s.Dispatch.Notify(ctx, ev); err != nil {
			observability.EventDeliveryErrors.WithLabelValues("dispatch").Inc()
			s.Logger.Error().Err(err).Str("event_id", ev.ID).Str("kind", string(kind)).Msg("event delivery failed")
		}
	}
	if s.Store != nil {
		if err := s.Store.SaveEvent(ctx, ev); err != nil {
			observability.EventDeliveryErrors.WithLabelValues("store").Inc()
			s.Logger.Error().Err(err).Str("event_id", ev.ID).Str("kind", string(kind)).Msg("event archive failed")
		}
	}
}

func outcome(err error) string {
	if errors.Is(err, ledger.ErrNoDriverAvailable) {
		return "no_driver"
	}
	return "error"
}

package httpapi

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/ingest"
	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/logging"
	"github.com/example/ride-dispatch/internal/matcher"
	"github.com/example/ride-dispatch/internal/storage"
)

// NewServerFromConfig wires a fresh ledger with the sinks cfg enables:
// websocket sessions always, Kafka, webhook and Postgres when configured.
func NewServerFromConfig(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	wsreg := dispatch.NewWSRegistry()
	sinks := dispatch.Multi{{Name: "ws", Notifier: wsreg}}
	var closers []func() error

	if len(cfg.Kafka.Brokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sinks = append(sinks, dispatch.Named{Name: "kafka", Notifier: kp})
		closers = append(closers, kp.Close)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka journal enabled")
	}
	if cfg.Webhook.URL != "" {
		sinks = append(sinks, dispatch.Named{Name: "webhook", Notifier: dispatch.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Timeout)})
		logger.Info().Str("url", cfg.Webhook.URL).Msg("webhook notifier enabled")
	}

	var store storage.EventStore
	if cfg.Postgres.DSN != "" {
		ps, err := storage.NewPostgresStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres archive: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := ps.Migrate(ctx); err != nil {
				_ = ps.Close()
				return nil, fmt.Errorf("postgres migrate: %w", err)
			}
			logger.Info().Msg("ride_events schema applied")
		}
		store = ps
		closers = append(closers, ps.Close)
	}

	svc := matcher.NewService(ledger.New(), logging.Component(logger, "matcher"))
	svc.Dispatch = sinks
	if store != nil {
		svc.Store = store
	}

	s := NewServer(svc, wsreg, logging.Component(logger, "http"), cfg.HTTP.RequestTimeout)
	s.closers = closers
	return s, nil
}

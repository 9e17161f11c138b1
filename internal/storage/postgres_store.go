package storage

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/ride-dispatch/internal/models"
)

const schema = `CREATE TABLE IF NOT EXISTS ride_events (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	ride_id    BIGINT,
	passenger  TEXT,
	driver     TEXT NOT NULL,
	at         TIMESTAMPTZ NOT NULL
)`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an already opened handle.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// Migrate creates the ride_events table when missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *PostgresStore) SaveEvent(ctx context.Context, ev models.Event) error {
	var rideID sql.NullInt64
	if ev.RideID != 0 {
		rideID = sql.NullInt64{Int64: int64(ev.RideID), Valid: true}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO ride_events(id, kind, ride_id, passenger, driver, at) VALUES($1,$2,$3,$4,$5,$6)`,
		ev.ID, string(ev.Kind), rideID, ev.Passenger, ev.Driver, ev.At)
	return err
}

func (p *PostgresStore) Close() error { return p.db.Close() }

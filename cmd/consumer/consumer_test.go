package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/example/ride-dispatch/internal/models"
)

// fakeUpdater implements RedisUpdater for tests
type fakeUpdater struct {
	failIncr  int // number of times to fail HIncrBy before succeeding
	failH     int // number of times to fail HSet before succeeding
	incrCalls int
	hCalls    int
	counts    map[string]map[string]int64
	hashes    map[string]map[string]interface{}
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{counts: map[string]map[string]int64{}, hashes: map[string]map[string]interface{}{}}
}

func (f *fakeUpdater) HIncrBy(ctx context.Context, key, field string, incr int64) error {
	f.incrCalls++
	if f.incrCalls <= f.failIncr {
		return errors.New("incr fail")
	}
	if f.counts[key] == nil {
		f.counts[key] = map[string]int64{}
	}
	f.counts[key][field] += incr
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.hCalls <= f.failH {
		return errors.New("hset fail")
	}
	f.hashes[key] = values
	return nil
}

func testEvent() models.Event {
	return models.Event{ID: "e1", Kind: models.RideMatched, RideID: 1, Passenger: "Pam", Driver: "Alice", At: time.Now().UTC()}
}

func TestUpdateRedisWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := newFakeUpdater()
	f.failIncr, f.failH = 1, 1
	ctx := context.Background()
	start := time.Now()
	if err := updateRedisWithRetry(ctx, f, "ride_stats", testEvent(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.incrCalls < 3 || f.hCalls < 2 {
		t.Fatalf("expected retries, got incr=%d h=%d", f.incrCalls, f.hCalls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
	if f.counts["ride_stats"]["ride.matched"] != 1 || f.counts["driver:stats:Alice"]["ride.matched"] != 1 {
		t.Fatalf("unexpected counts: %v", f.counts)
	}
	if f.hashes["driver:stats:Alice"]["last_passenger"] != "Pam" {
		t.Fatalf("unexpected summary: %v", f.hashes)
	}
}

func TestUpdateRedisWithRetry_FailsWhenExhausted(t *testing.T) {
	f := newFakeUpdater()
	f.failIncr = 5
	ctx := context.Background()
	if err := updateRedisWithRetry(ctx, f, "ride_stats", testEvent(), 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}

type scriptedReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
}

func (s *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(s.msgs) == 0 {
		s.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := s.msgs[0]
	s.msgs = s.msgs[1:]
	return m, nil
}

func TestConsumeSkipsInvalidMessages(t *testing.T) {
	good, _ := json.Marshal(testEvent())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &scriptedReader{cancel: cancel, msgs: []kafka.Message{
		{Value: []byte("not json")},
		{Value: []byte(`{"kind":"ride.matched"}`)},
		{Value: good},
	}}
	f := newFakeUpdater()
	consume(ctx, r, f, "ride_stats", zerolog.Nop())
	if f.counts["ride_stats"]["ride.matched"] != 1 {
		t.Fatalf("expected one counted event, got %v", f.counts)
	}
}

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-dispatch/internal/models"
)

func TestMultiJoinsSinkErrors(t *testing.T) {
	boom := errors.New("boom")
	var calls []string
	m := Multi{
		{Name: "ok", Notifier: NotifierFunc(func(ctx context.Context, ev models.Event) error { calls = append(calls, "ok"); return nil })},
		{Name: "bad", Notifier: NotifierFunc(func(ctx context.Context, ev models.Event) error { calls = append(calls, "bad"); return boom })},
		{Name: "after", Notifier: NotifierFunc(func(ctx context.Context, ev models.Event) error { calls = append(calls, "after"); return nil })},
	}
	err := m.Notify(context.Background(), models.Event{Kind: models.RideMatched})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var se *SinkError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad", se.Sink)
	assert.Equal(t, []string{"ok", "bad", "after"}, calls)
}

func TestWebhookNotifier(t *testing.T) {
	var got models.Event
	var kind string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind = r.Header.Get("X-Event-Kind")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	ev := models.Event{ID: "e1", Kind: models.RideCompleted, RideID: 3, Passenger: "Pam", Driver: "Alice"}
	require.NoError(t, n.Notify(context.Background(), ev))
	assert.Equal(t, "ride.completed", kind)
	assert.Equal(t, "Pam", got.Passenger)
	assert.Equal(t, uint64(3), got.RideID)
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	err := NewWebhookNotifier(srv.URL, time.Second).Notify(context.Background(), models.Event{})
	assert.ErrorContains(t, err, "webhook status 502")
}

func TestWSRegistryDeliversToDriver(t *testing.T) {
	reg := NewWSRegistry()
	upgrader := websocket.Upgrader{}
	added := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		reg.Add("Alice", conn)
		close(added)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	<-added

	require.NoError(t, reg.Notify(context.Background(), models.Event{Kind: models.RideMatched, Driver: "Bob"}))
	require.NoError(t, reg.Notify(context.Background(), models.Event{Kind: models.RideMatched, Driver: "Alice", Passenger: "Pam"}))

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev models.Event
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, "Pam", ev.Passenger)
	assert.Equal(t, 1, reg.Len())

	assert.ErrorIs(t, reg.Send("Bob", models.Event{}), ErrNoSession)
}

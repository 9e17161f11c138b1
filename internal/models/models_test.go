package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDriverStatsHashFields(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("CET", 3600))
	stats := StatsFromEvent(Event{ID: "e1", Kind: RideMatched, RideID: 3, Passenger: "Pam", Driver: "Alice", At: at})

	assert.Equal(t, "Alice", stats.Driver)
	assert.Equal(t, map[string]interface{}{
		"last_kind":      "ride.matched",
		"last_passenger": "Pam",
		"updated":        "2026-03-04T04:06:07Z",
	}, stats.HashFields())
}

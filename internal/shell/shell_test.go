package shell

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ride-dispatch/internal/ledger"
	"github.com/example/ride-dispatch/internal/matcher"
)

func runScript(t *testing.T, lines ...string) (string, *matcher.Service) {
	t.Helper()
	svc := matcher.NewService(nil, zerolog.Nop())
	var out bytes.Buffer
	sh := New(svc, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out)
	require.NoError(t, sh.Run(context.Background()))
	return out.String(), svc
}

func TestShellScenario(t *testing.T) {
	out, svc := runScript(t,
		"1", "Alice",
		"1", "Bob",
		"2", "Pam",
		"2", "Tom",
		"2", "Sam",
		"3",
		"4",
		"6",
		"7",
		"8",
	)
	for _, want := range []string{
		"Driver Alice added.",
		"Driver Bob added.",
		"Ride requested for Pam with driver Alice.",
		"Ride requested for Tom with driver Bob.",
		"No available drivers.",
		"Ride completed for Pam with driver Alice.",
		"Ride request for Tom undone. Driver Bob is now available again.",
		"Exiting the app.",
	} {
		assert.Contains(t, out, want)
	}
	assert.Empty(t, svc.Scheduled())
	assert.Len(t, svc.Completed(), 1)
	assert.Contains(t, out, "Completed Rides:\nPassenger Name       Driver Name\n"+strings.Repeat("-", 30)+"\nPam                  Alice\n")
}

func TestShellEmptyQueueAndUndo(t *testing.T) {
	out, _ := runScript(t, "3", "4", "8")
	assert.Contains(t, out, "No scheduled rides.")
	assert.Contains(t, out, "No ride requests to undo.")
}

func TestShellInvalidInputContinues(t *testing.T) {
	out, svc := runScript(t, "9", "abc", "1", "   ", "1", "Alice", "8")
	assert.Equal(t, 2, strings.Count(out, "Invalid command. Please try again."))
	assert.Contains(t, out, "Invalid input: name cannot be empty.")
	assert.Equal(t, []ledger.Driver{{Name: "Alice", Available: true}}, svc.Drivers())
}

func TestShellStopsAtEndOfInput(t *testing.T) {
	out, svc := runScript(t, "1")
	assert.NotContains(t, out, "Exiting the app.")
	assert.Empty(t, svc.Drivers())
}

func TestShellReRegistrationReportsCancellation(t *testing.T) {
	out, _ := runScript(t, "1", "Alice", "2", "Pam", "1", "Alice", "5", "8")
	assert.Contains(t, out, "Pending ride for Pam cancelled.")
	assert.Contains(t, out, "Alice                Available\n")
}

func TestRenderDrivers(t *testing.T) {
	var buf bytes.Buffer
	RenderDrivers(&buf, []ledger.Driver{{Name: "Alice", Available: true}, {Name: "Bob"}})
	want := "\nAvailable Drivers:\n" +
		"Driver Name          Status\n" +
		strings.Repeat("-", 30) + "\n" +
		"Alice                Available\n" +
		"Bob                  Busy\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderRidesEmpty(t *testing.T) {
	var buf bytes.Buffer
	RenderRides(&buf, "Scheduled Rides:", nil)
	assert.Equal(t, "\nScheduled Rides:\nPassenger Name       Driver Name\n"+strings.Repeat("-", 30)+"\n", buf.String())
}

func TestShellStopsOnCancelWhileReadPending(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	svc := matcher.NewService(nil, zerolog.Nop())
	var out bytes.Buffer
	sh := New(svc, pr, &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run kept blocking after ctx cancellation")
	}
}

func TestShellStopsOnCancelAtNamePrompt(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	svc := matcher.NewService(nil, zerolog.Nop())
	sh := New(svc, pr, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sh.Run(ctx) }()

	_, err := io.WriteString(pw, "1\n")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run kept blocking at the name prompt after ctx cancellation")
	}
	assert.Empty(t, svc.Drivers())
}

func TestShellMenuText(t *testing.T) {
	out, _ := runScript(t, "8")
	want := "\nSelect option:\n" +
		" 1: Add Driver\n" +
		" 2: Request Ride\n" +
		" 3: Complete Ride\n" +
		" 4: Undo Request\n" +
		" 5: Show Available Drivers\n" +
		" 6: Show Scheduled Rides\n" +
		" 7: Show Completed Rides\n" +
		" 8: Exit\n" +
		"Enter your choice: " +
		"Exiting the app.\n"
	assert.Equal(t, want, out)
}

package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/ride-dispatch/internal/ledger"
)

// Dispatcher is the ledger surface the shell drives.
type Dispatcher interface {
	RegisterDriver(ctx context.Context, name string) (ledger.Ride, bool)
	RequestRide(ctx context.Context, passenger string) (ledger.Ride, error)
	CompleteRide(ctx context.Context) (ledger.Ride, error)
	UndoRequest(ctx context.Context) (ledger.Ride, error)
	Drivers() []ledger.Driver
	Scheduled() []ledger.Ride
	Completed() []ledger.Ride
}

const menu = `
Select option:
 1: Add Driver
 2: Request Ride
 3: Complete Ride
 4: Undo Request
 5: Show Available Drivers
 6: Show Scheduled Rides
 7: Show Completed Rides
 8: Exit
Enter your choice: `

var errEmptyName = errors.New("name cannot be empty")

// Shell is the interactive numbered menu over a Dispatcher.
type Shell struct {
	d     Dispatcher
	in    *bufio.Scanner
	out   io.Writer
	lines chan string
}

func New(d Dispatcher, in io.Reader, out io.Writer) *Shell {
	return &Shell{d: d, in: bufio.NewScanner(in), out: out}
}

// Run reads commands until option 8, end of input or ctx cancellation.
// Cancellation is honoured while a read is pending.
func (s *Shell) Run(ctx context.Context) error {
	s.lines = make(chan string)
	go s.scan(ctx)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.out, menu)
		choice, err := s.readLine(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		if choice == "8" {
			fmt.Fprintln(s.out, "Exiting the app.")
			return nil
		}
		if err := s.exec(ctx, choice); err != nil {
			return err
		}
	}
}

func (s *Shell) exec(ctx context.Context, choice string) error {
	switch choice {
	case "1":
		name, err := s.prompt(ctx, "Enter driver name: ")
		if err != nil {
			return s.inputErr(err)
		}
		cancelled, ok := s.d.RegisterDriver(ctx, name)
		fmt.Fprintf(s.out, "Driver %s added.\n", name)
		if ok {
			fmt.Fprintf(s.out, "Pending ride for %s cancelled.\n", cancelled.Passenger)
		}
	case "2":
		name, err := s.prompt(ctx, "Enter passenger name: ")
		if err != nil {
			return s.inputErr(err)
		}
		r, err := s.d.RequestRide(ctx, name)
		if err != nil {
			s.report(err)
			return nil
		}
		fmt.Fprintf(s.out, "Ride requested for %s with driver %s.\n", r.Passenger, r.Driver)
	case "3":
		r, err := s.d.CompleteRide(ctx)
		if err != nil {
			s.report(err)
			return nil
		}
		fmt.Fprintf(s.out, "Ride completed for %s with driver %s.\n", r.Passenger, r.Driver)
	case "4":
		r, err := s.d.UndoRequest(ctx)
		if err != nil {
			s.report(err)
			return nil
		}
		fmt.Fprintf(s.out, "Ride request for %s undone. Driver %s is now available again.\n", r.Passenger, r.Driver)
	case "5":
		RenderDrivers(s.out, s.d.Drivers())
	case "6":
		RenderRides(s.out, "Scheduled Rides:", s.d.Scheduled())
	case "7":
		RenderRides(s.out, "Completed Rides:", s.d.Completed())
	default:
		fmt.Fprintln(s.out, "Invalid command. Please try again.")
	}
	return nil
}

// inputErr turns a validation problem into a message. End of input and
// cancellation are left for Run to notice on its next read.
func (s *Shell) inputErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	fmt.Fprintf(s.out, "Invalid input: %v.\n", err)
	return nil
}

func (s *Shell) report(err error) {
	switch {
	case errors.Is(err, ledger.ErrNoDriverAvailable):
		fmt.Fprintln(s.out, "No available drivers.")
	case errors.Is(err, ledger.ErrQueueEmpty):
		fmt.Fprintln(s.out, "No scheduled rides.")
	case errors.Is(err, ledger.ErrNothingToUndo):
		fmt.Fprintln(s.out, "No ride requests to undo.")
	default:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *Shell) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(s.out, label)
	line, err := s.readLine(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return "", errEmptyName
	}
	return line, nil
}

// scan feeds input lines to readLine; the channel closes at end of input.
// A goroutine blocked in Scan after cancellation is abandoned with the reader.
func (s *Shell) scan(ctx context.Context) {
	defer close(s.lines)
	for s.in.Scan() {
		select {
		case s.lines <- s.in.Text():
		case <-ctx.Done():
			return
		}
	}
}

func (s *Shell) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

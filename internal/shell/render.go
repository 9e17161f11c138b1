package shell

import (
	"fmt"
	"io"
	"strings"

	"github.com/example/ride-dispatch/internal/ledger"
)

const (
	columnWidth = 20
	ruleWidth   = 30
)

// RenderDrivers writes the driver table for a snapshot.
func RenderDrivers(w io.Writer, drivers []ledger.Driver) {
	rows := make([][2]string, 0, len(drivers))
	for _, d := range drivers {
		status := "Busy"
		if d.Available {
			status = "Available"
		}
		rows = append(rows, [2]string{d.Name, status})
	}
	renderTable(w, "Available Drivers:", [2]string{"Driver Name", "Status"}, rows)
}

// RenderRides writes a passenger/driver table for a snapshot.
func RenderRides(w io.Writer, title string, rides []ledger.Ride) {
	rows := make([][2]string, 0, len(rides))
	for _, r := range rides {
		rows = append(rows, [2]string{r.Passenger, r.Driver})
	}
	renderTable(w, title, [2]string{"Passenger Name", "Driver Name"}, rows)
}

func renderTable(w io.Writer, title string, header [2]string, rows [][2]string) {
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintf(w, "%-*s %s\n", columnWidth, header[0], header[1])
	fmt.Fprintln(w, strings.Repeat("-", ruleWidth))
	for _, r := range rows {
		fmt.Fprintf(w, "%-*s %s\n", columnWidth, r[0], r[1])
	}
}

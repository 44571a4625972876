package commands

import (
	"fmt"
	"io"

	"github.com/satlink-project/satlink-go/pkg/log"
)

// RunView prints the events of the log file that match filter.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] COMPONENT Label
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var label string
	switch {
	case event.Request != nil:
		label = "Request " + event.Request.Stage.String()
	case event.StateChange != nil:
		label = event.StateChange.Entity.String() + " state"
	case event.Datagram != nil:
		label = "Datagram " + event.Datagram.Stage.String()
	case event.Error != nil:
		label = "Error"
	default:
		label = event.Category.String()
	}

	fmt.Fprintf(w, "%s [%s] %-8s %s\n", ts, shortenID(event.SessionID), event.Component.String(), label)

	switch {
	case event.Request != nil:
		r := event.Request
		fmt.Fprintf(w, "  RequestID: %d\n", r.RequestID)
		fmt.Fprintf(w, "  Enable: %t  Demo: %t  Emergency: %t\n", r.Enable, r.DemoMode, r.Emergency)
		if r.Synthetic {
			fmt.Fprintln(w, "  Synthetic: true")
		}
		if r.Result != "" {
			fmt.Fprintf(w, "  Result: %s\n", r.Result)
		}
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Datagram != nil:
		d := event.Datagram
		fmt.Fprintf(w, "  DatagramID: %d  Channel: %s\n", d.DatagramID, d.Channel)
		if d.ListenerID != "" {
			fmt.Fprintf(w, "  Listener: %s", shortenID(d.ListenerID))
			if d.Attempt > 0 {
				fmt.Fprintf(w, "  Attempt: %d", d.Attempt)
			}
			fmt.Fprintln(w)
		}
		if d.Size > 0 {
			fmt.Fprintf(w, "  Size: %d bytes\n", d.Size)
		}
		if d.PendingCount > 0 {
			fmt.Fprintf(w, "  Pending: %d\n", d.PendingCount)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenID returns the first 8 characters of a UUID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

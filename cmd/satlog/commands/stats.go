package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/satlink-project/satlink-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents         int
	EventsByComponent   map[log.Component]int
	EventsByCategory    map[log.Category]int
	Sessions            map[string]int
	RequestResults      map[string]int
	SyntheticRequests   int
	Timeouts            int
	DatagramsReceived   int
	DatagramsDeleted    int
	Redeliveries        int
	AbandonedDeliveries int
	Errors              int
	TimeRange           struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func newStats() *Stats {
	return &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		Sessions:          make(map[string]int),
		RequestResults:    make(map[string]int),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByComponent[event.Component]++
	s.EventsByCategory[event.Category]++
	s.Sessions[event.SessionID]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	switch {
	case event.Request != nil:
		r := event.Request
		switch r.Stage {
		case log.RequestSubmitted:
			if r.Synthetic {
				s.SyntheticRequests++
			}
		case log.RequestCompleted:
			s.RequestResults[r.Result]++
		case log.RequestTimedOut:
			s.Timeouts++
		}
	case event.Datagram != nil:
		d := event.Datagram
		switch d.Stage {
		case log.DatagramReceived:
			s.DatagramsReceived++
		case log.DatagramDeleted:
			s.DatagramsDeleted++
		case log.DatagramDispatched:
			if d.Attempt > 1 {
				s.Redeliveries++
			}
		case log.DatagramAbandoned:
			s.AbandonedDeliveries++
		}
	case event.Error != nil:
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Satlink Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Sessions:     %d\n", len(stats.Sessions))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Component:")
	for _, c := range []log.Component{log.ComponentArbiter, log.ComponentDelivery, log.ComponentCoexist, log.ComponentService} {
		if count := stats.EventsByComponent[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryRequest, log.CategoryState, log.CategoryDatagram, log.CategoryError} {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.RequestResults) > 0 {
		fmt.Fprintln(w, "Request Results:")
		results := make([]string, 0, len(stats.RequestResults))
		for r := range stats.RequestResults {
			results = append(results, r)
		}
		sort.Strings(results)
		for _, r := range results {
			fmt.Fprintf(w, "  %-28s %d\n", r+":", stats.RequestResults[r])
		}
		fmt.Fprintf(w, "  Timeouts: %d  Corrective disables: %d\n", stats.Timeouts, stats.SyntheticRequests)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Datagrams:")
	fmt.Fprintf(w, "  Received:     %d\n", stats.DatagramsReceived)
	fmt.Fprintf(w, "  Deleted:      %d\n", stats.DatagramsDeleted)
	fmt.Fprintf(w, "  Redeliveries: %d\n", stats.Redeliveries)
	if stats.AbandonedDeliveries > 0 {
		fmt.Fprintf(w, "  Abandoned:    %d\n", stats.AbandonedDeliveries)
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/satlink-project/satlink-go/pkg/log"
)

func TestFormatRequestEvent(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0000",
		Component: log.ComponentArbiter,
		Category:  log.CategoryRequest,
		Request: &log.RequestEvent{
			RequestID: 42,
			Stage:     log.RequestCompleted,
			Enable:    true,
			DemoMode:  true,
			Result:    "SUCCESS",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "2026-03-02T10:15:32.123456Z") {
		t.Errorf("expected timestamp in output, got:\n%s", output)
	}
	if !strings.Contains(output, "[abc12345]") {
		t.Errorf("expected shortened session id in output, got:\n%s", output)
	}
	if !strings.Contains(output, "ARBITER") {
		t.Errorf("expected component in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Request COMPLETED") {
		t.Errorf("expected request stage in output, got:\n%s", output)
	}
	if !strings.Contains(output, "RequestID: 42") {
		t.Errorf("expected request id in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Demo: true") {
		t.Errorf("expected demo flag in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Result: SUCCESS") {
		t.Errorf("expected result in output, got:\n%s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Component: log.ComponentArbiter,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: "ENABLING",
			NewState: "ENABLED",
			Reason:   "modem reported enabled",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "SESSION state") {
		t.Errorf("expected entity label in output, got:\n%s", output)
	}
	if !strings.Contains(output, "ENABLING -> ENABLED") {
		t.Errorf("expected transition in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Reason: modem reported enabled") {
		t.Errorf("expected reason in output, got:\n%s", output)
	}
}

func TestFormatDatagramEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Component: log.ComponentDelivery,
		Category:  log.CategoryDatagram,
		Datagram: &log.DatagramEvent{
			DatagramID: 17,
			Channel:    "sms",
			Stage:      log.DatagramDispatched,
			ListenerID: "0badcafe-1111",
			Attempt:    2,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Datagram DISPATCHED") {
		t.Errorf("expected datagram stage in output, got:\n%s", output)
	}
	if !strings.Contains(output, "DatagramID: 17  Channel: sms") {
		t.Errorf("expected datagram id and channel in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Listener: 0badcafe  Attempt: 2") {
		t.Errorf("expected listener and attempt in output, got:\n%s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Component: log.ComponentDelivery,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Message: "disk full",
			Context: "insert record",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Message: disk full") {
		t.Errorf("expected message in output, got:\n%s", output)
	}
	if !strings.Contains(output, "Context: insert record") {
		t.Errorf("expected context in output, got:\n%s", output)
	}
}

func TestRunViewAppliesFilter(t *testing.T) {
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Component: log.ComponentDelivery, Category: log.CategoryDatagram,
			Datagram: &log.DatagramEvent{DatagramID: 1, Channel: "sms", Stage: log.DatagramReceived}},
		{Timestamp: ts, Component: log.ComponentDelivery, Category: log.CategoryDatagram,
			Datagram: &log.DatagramEvent{DatagramID: 2, Channel: "sms", Stage: log.DatagramReceived}},
	}
	path := createTestLogFile(t, events)

	filter, err := FilterOptions{DatagramID: "2"}.BuildFilter()
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "DatagramID: 1 ") {
		t.Errorf("expected datagram 1 to be filtered out, got:\n%s", output)
	}
	if !strings.Contains(output, "DatagramID: 2 ") {
		t.Errorf("expected datagram 2 in output, got:\n%s", output)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView("/nonexistent/events.slog", log.Filter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}

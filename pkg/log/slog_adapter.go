package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("component", event.Component.String()),
		slog.String("category", event.Category.String()),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}

	switch {
	case event.Request != nil:
		r := event.Request
		attrs = append(attrs,
			slog.Uint64("request_id", r.RequestID),
			slog.String("stage", r.Stage.String()),
			slog.Bool("enable", r.Enable),
			slog.Bool("demo", r.DemoMode),
			slog.Bool("emergency", r.Emergency),
		)
		if r.Synthetic {
			attrs = append(attrs, slog.Bool("synthetic", true))
		}
		if r.Result != "" {
			attrs = append(attrs, slog.String("result", r.Result))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Datagram != nil:
		d := event.Datagram
		attrs = append(attrs,
			slog.Uint64("datagram_id", d.DatagramID),
			slog.String("stage", d.Stage.String()),
			slog.String("channel", d.Channel),
		)
		if d.ListenerID != "" {
			attrs = append(attrs, slog.String("listener", d.ListenerID))
		}
		if d.Attempt > 0 {
			attrs = append(attrs, slog.Int("attempt", d.Attempt))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)

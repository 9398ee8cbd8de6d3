package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at Debug level. Diagnostics
// and errors are logged at Warn.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("session", event.SessionID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		m := event.Message
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.Uint64("msg_id", uint64(m.MessageID)),
			slog.String("msg_type", m.Type.String()),
		)
		if m.Operation != nil {
			attrs = append(attrs, slog.String("operation", m.Operation.String()))
		}
		if m.Path != "" {
			attrs = append(attrs, slog.String("path", m.Path))
		}
		if m.Status != nil {
			attrs = append(attrs, slog.String("status", m.Status.String()))
		}
		if m.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
		}
	case event.Mutation != nil:
		m := event.Mutation
		attrs = append(attrs,
			slog.String("path", m.Path),
			slog.String("value", m.Value.String()),
			slog.String("previous", m.Previous.String()),
			slog.Int("depth", m.Depth),
			slog.Bool("internal", m.Internal),
		)
		if !m.Desired.Equal(m.Value) {
			attrs = append(attrs, slog.String("desired", m.Desired.String()))
		}
	case event.Lifecycle != nil:
		l := event.Lifecycle
		attrs = append(attrs, slog.String("action", l.Action.String()))
		if l.Path != "" {
			attrs = append(attrs, slog.String("path", l.Path))
		}
		if l.Target != "" {
			attrs = append(attrs, slog.String("target", l.Target))
		}
		if l.Component != "" {
			attrs = append(attrs, slog.String("component", l.Component))
		}
		if l.Count > 0 {
			attrs = append(attrs, slog.Int("count", l.Count))
		}
	case event.Diagnostic != nil:
		level = slog.LevelWarn
		d := event.Diagnostic
		attrs = append(attrs,
			slog.String("kind", d.Kind.String()),
			slog.String("path", d.Path),
		)
		if d.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", d.Duration))
		}
		if d.Count > 0 {
			attrs = append(attrs, slog.Int("count", d.Count))
		}
		if d.Message != "" {
			attrs = append(attrs, slog.String("message", d.Message))
		}
	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), level, "event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)

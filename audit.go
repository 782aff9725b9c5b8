package tokenauth

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives AuditEvent values from the engine's dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based AuditSink.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes JSON-encoded events to an io.Writer, one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

// Audit event types.
const (
	AuditEventRegister       = internalaudit.EventRegister
	AuditEventLogin          = internalaudit.EventLogin
	AuditEventLoginThrottled = internalaudit.EventLoginThrottled
	AuditEventRefresh        = internalaudit.EventRefresh
	AuditEventLogout         = internalaudit.EventLogout
	AuditEventLogoutAll      = internalaudit.EventLogoutAll
	AuditEventPasswordForgot = internalaudit.EventPasswordForgot
	AuditEventAccessRejected = internalaudit.EventAccessRejected
)

// NewChannelSink returns a sink buffering up to buffer events for Events.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink returns a sink logging events through logger, or
// slog.Default when logger is nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, userID string, success bool, err error, metadata map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	e.audit.Emit(ctx, event)
}

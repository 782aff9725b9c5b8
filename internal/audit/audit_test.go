package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{}, nil)
	require.Nil(t, d)

	d.Emit(context.Background(), Event{EventType: EventLogin})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink, nil)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: EventLogin, Success: true})
	}
	d.Close()

	assert.EqualValues(t, 50, sink.count.Load())

	d.Emit(context.Background(), Event{EventType: EventLogin})
	assert.EqualValues(t, 50, sink.count.Load(), "emit after close must be ignored")
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	var onDrop atomic.Int64
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, func(Event) {
		onDrop.Add(1)
	})

	// One event is held by the blocked sink, one fills the buffer.
	d.Emit(context.Background(), Event{EventType: EventLogin})
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Emit(context.Background(), Event{EventType: EventLogin})

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: EventLogin})
	}

	assert.EqualValues(t, 5, d.Dropped())
	assert.EqualValues(t, 5, onDrop.Load())

	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink, nil)

	d.Emit(context.Background(), Event{EventType: EventLogin})
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	d.Emit(context.Background(), Event{EventType: EventLogin})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{EventType: EventLogin})
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Zero(t, d.Dropped())

	close(sink.gate)
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sink.Emit(context.Background(), Event{Timestamp: at, EventType: EventRegister, UserID: "u-1", Success: true})
	sink.Emit(context.Background(), Event{Timestamp: at, EventType: EventLogin, Error: "invalid credentials"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "register", first["event_type"])
	assert.Equal(t, "u-1", first["user_id"])
	assert.Equal(t, true, first["success"])
	assert.NotContains(t, first, "ip")

	var nilSink *JSONWriterSink
	nilSink.Emit(context.Background(), Event{})
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: EventLogin, UserID: "u-1", Success: true})
	sink.Emit(context.Background(), Event{
		EventType: EventLogin,
		IP:        "10.0.0.1",
		Error:     "invalid credentials",
		Metadata:  map[string]string{"reason": "password"},
	})

	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=audit event_type=login")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "ip=10.0.0.1")
	assert.Contains(t, out, "meta.reason=password")
}

func TestChannelSink(t *testing.T) {
	sink := NewChannelSink(0)
	sink.Emit(context.Background(), Event{EventType: EventLogout})

	select {
	case ev := <-sink.Events():
		assert.Equal(t, EventLogout, ev.EventType)
	default:
		t.Fatal("expected buffered event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	sink.Emit(ctx, Event{})
	cancel()
	sink.Emit(ctx, Event{})
}

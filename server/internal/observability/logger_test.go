package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	reqCtx := NewRequestContext(logger, "/api/v1/chat", "session-1")

	ctx := WithRequestContext(context.Background(), reqCtx)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, "/api/v1/chat", got.Route)
	assert.Equal(t, "session-1", got.SessionID)
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
}

func TestRequestContextLogFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	reqCtx := NewRequestContext(logger, "/api/v1/chat", "session-1")

	reqCtx.Info("turn handled", slog.Int(LogFieldMessageLen, 12))

	out := buf.String()
	assert.Contains(t, out, LogFieldRequestID+"="+reqCtx.RequestID)
	assert.Contains(t, out, LogFieldRoute+"=/api/v1/chat")
	assert.Contains(t, out, LogFieldSessionID+"=session-1")
	assert.Contains(t, out, LogFieldMessageLen+"=12")
}

func TestMetricsRecordBooking(t *testing.T) {
	m := NewMetrics(10)

	m.RecordRequest("/api/v1/chat")
	m.RecordDuration("/api/v1/chat", 20*time.Millisecond)
	m.RecordBooking()
	m.RecordBooking()

	snap := m.Read()
	assert.Equal(t, int64(1), snap.RequestTotal)
	assert.Equal(t, int64(2), snap.BookingsMade)
	assert.Equal(t, int64(20), snap.AvgDurationMs)
}

package telemetry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxFieldLen = 10000
	maxAttempts = 3
	ackTimeout  = 5 * time.Second
)

// UsageRecord is one chat exchange's usage telemetry as sent to the ingest
// bus.
type UsageRecord struct {
	TelemetryID      string `json:"telemetry_id"`
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
	ResponseTimeMs   int64  `json:"response_time_ms"`
}

// Bus delivers usage records to a websocket ingest endpoint. Delivery is
// fire-and-forget with bounded retry: the connection is owned by the bus,
// reinitialized when it looks closed, and every failure is logged and
// swallowed. A bus with no URL configured is disabled and records nothing.
type Bus struct {
	url    string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewBus(url string, logger *slog.Logger) *Bus {
	if url == "" {
		logger.Info("usage telemetry disabled, no bus URL configured")
	}
	return &Bus{url: url, logger: logger}
}

// Enabled reports whether a bus URL is configured.
func (b *Bus) Enabled() bool { return b.url != "" }

// Record sends one usage record, retrying up to three times with backoff and
// reconnecting when the connection appears closed. Errors are logged, never
// returned: telemetry must not alter the chat path.
func (b *Bus) Record(userText, assistantText string, responseTime time.Duration) {
	if !b.Enabled() {
		return
	}

	record := UsageRecord{
		TelemetryID:      uuid.NewString(),
		UserMessage:      truncate(userText, maxFieldLen),
		AssistantMessage: truncate(assistantText, maxFieldLen),
		ResponseTimeMs:   responseTime.Milliseconds(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := b.send(record)
		if err == nil {
			b.logger.Info("telemetry sent", "telemetry_id", record.TelemetryID)
			return
		}

		b.logger.Warn("failed to send telemetry",
			"attempt", attempt, "max_attempts", maxAttempts, "error", err)
		b.reset()

		if attempt < maxAttempts {
			time.Sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}
	b.logger.Error("failed to send telemetry, giving up", "attempts", maxAttempts)
}

// send writes the record and waits for the ingest acknowledgement. The caller
// holds the mutex.
func (b *Bus) send(record UsageRecord) error {
	if b.conn == nil {
		conn, _, err := websocket.DefaultDialer.Dial(b.url, nil)
		if err != nil {
			return fmt.Errorf("failed to connect to telemetry bus: %w", err)
		}
		b.conn = conn
		b.logger.Info("connected to telemetry bus", "url", b.url)
	}

	if err := b.conn.WriteJSON(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	b.conn.SetReadDeadline(time.Now().Add(ackTimeout))
	if _, _, err := b.conn.ReadMessage(); err != nil {
		return fmt.Errorf("failed to read ack: %w", err)
	}
	return nil
}

// reset drops the connection so the next attempt redials. The caller holds
// the mutex.
func (b *Bus) reset() {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Close disconnects from the bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		b.conn.Close()
		b.conn = nil
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/events"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/retry"

	"github.com/gorilla/websocket"
)

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	maxMessageSize   = 4096
)

// Sink holds one websocket connection to the notification server. A broken
// connection is dropped and redialed on the next send. Sends block while dialing,
// so the service delivers through an Async queue whose worker owns the sink.
type Sink struct {
	url      string
	dialer   *websocket.Dialer
	retryCfg retry.Config

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewSink creates a sink for url. No connection is made until Connect or the first send.
func NewSink(url string) *Sink {
	return &Sink{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		retryCfg: retry.DefaultConfig(),
	}
}

// Connect dials the notification server if not already connected.
func (s *Sink) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.connLocked(ctx)
	return err
}

func (s *Sink) connLocked(ctx context.Context) (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	var conn *websocket.Conn
	err := retry.WithRetry(ctx, s.retryCfg, "websocket dial", func() error {
		c, resp, err := s.dialer.DialContext(ctx, s.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to notification server: %w", err)
	}

	slog.Info("Connected to notification server", "url", s.url)
	s.conn = conn
	go s.readPump(conn)
	return conn, nil
}

// readPump consumes control frames and drops the connection once the peer goes away.
func (s *Sink) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Notification connection closed", "error", err)
			}
			s.drop(conn)
			return
		}
	}
}

func (s *Sink) drop(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
	conn.Close()
}

// Send writes msg as a JSON text frame.
func (s *Sink) Send(ctx context.Context, msg events.ProcessingLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.connLocked(ctx)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)

	if err := conn.WriteJSON(msg); err != nil {
		s.conn = nil
		conn.Close()
		return fmt.Errorf("failed to write processing log: %w", err)
	}
	return nil
}

// ProcessingStarted sends the PROCESSING_LOG message for stationID.
func (s *Sink) ProcessingStarted(ctx context.Context, stationID string, at time.Time) error {
	return s.Send(ctx, events.NewProcessingLog(stationID, at))
}

// Close sends a close frame and releases the connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return conn.Close()
}

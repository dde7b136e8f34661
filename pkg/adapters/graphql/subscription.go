package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aretw0/quill/pkg/core"
)

// Subprotocol is the websocket sub-protocol spoken by the realtime endpoint.
const Subprotocol = "graphql-transport-ws"

// graphql-transport-ws message types.
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

const (
	writeTimeout      = 5 * time.Second
	subscriptionQueue = 16
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribeNoteCreated implements core.Subscribable.
// It dials the realtime endpoint, completes the handshake and starts an
// onCreateNote subscription. The subscription ends when ctx is done.
func (c *Client) SubscribeNoteCreated(ctx context.Context) (core.Subscription, error) {
	header := http.Header{}
	if c.apiKey != "" {
		header.Set("x-api-key", c.apiKey)
	}

	dialer := *c.dialer
	dialer.Subprotocols = []string{Subprotocol}

	conn, resp, err := dialer.DialContext(ctx, c.realtimeURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("graphql %s: dial: %w", core.OpOnCreateNote, &HTTPError{StatusCode: resp.StatusCode, Message: resp.Status})
		}
		return nil, fmt.Errorf("graphql %s: dial: %w", core.OpOnCreateNote, err)
	}

	if err := c.handshake(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("graphql %s: %w", core.OpOnCreateNote, err)
	}

	payload, err := json.Marshal(request{Query: onCreateNoteSubscription, OperationName: opNameOnCreateNote})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sub := &subscription{
		conn:    conn,
		id:      uuid.NewString(),
		logger:  c.logger.With("op", core.OpOnCreateNote),
		notes:   make(chan core.Note, subscriptionQueue),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := sub.write(wsMessage{ID: sub.id, Type: msgSubscribe, Payload: payload}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("graphql %s: subscribe: %w", core.OpOnCreateNote, err)
	}

	c.subscriptions.Add(1)
	go func() {
		sub.readLoop()
		c.subscriptions.Add(-1)
	}()
	go func() {
		select {
		case <-ctx.Done():
			sub.shutdown(ctx.Err())
		case <-sub.done:
		}
	}()

	c.logger.Debug("subscription started", "op", core.OpOnCreateNote, "id", sub.id, "url", c.realtimeURL)
	return sub, nil
}

// handshake sends connection_init and waits for connection_ack.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn) error {
	var initPayload json.RawMessage
	if c.apiKey != "" {
		raw, err := json.Marshal(map[string]string{"x-api-key": c.apiKey})
		if err != nil {
			return err
		}
		initPayload = raw
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(wsMessage{Type: msgConnectionInit, Payload: initPayload}); err != nil {
		return fmt.Errorf("connection_init: %w", err)
	}

	deadline := time.Now().Add(c.ackTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	// Cancellation unblocks the read below by closing the connection.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("waiting for connection_ack: %w", ctxErr)
			}
			return fmt.Errorf("waiting for connection_ack: %w", err)
		}
		switch msg.Type {
		case msgConnectionAck:
			return nil
		case msgPing:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(wsMessage{Type: msgPong}); err != nil {
				return fmt.Errorf("pong: %w", err)
			}
		case msgPong:
		default:
			return fmt.Errorf("unexpected %q before connection_ack", msg.Type)
		}
	}
}

// subscription is one graphql-transport-ws operation on its own connection.
type subscription struct {
	conn   *websocket.Conn
	id     string
	logger *slog.Logger

	notes   chan core.Note
	closing chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex

	mu    sync.Mutex
	cause error
	err   error
}

func (s *subscription) Notes() <-chan core.Note { return s.notes }

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close sends complete, closes the connection and waits for the reader.
func (s *subscription) Close() error {
	s.shutdown(nil)
	<-s.done
	return nil
}

func (s *subscription) shutdown(cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.cause = cause
		s.mu.Unlock()
		close(s.closing)

		_ = s.write(wsMessage{ID: s.id, Type: msgComplete})
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}

func (s *subscription) write(msg wsMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *subscription) readLoop() {
	defer close(s.done)
	defer close(s.notes)

	err := s.receive()

	select {
	case <-s.closing:
		s.mu.Lock()
		err = s.cause
		s.mu.Unlock()
	default:
		_ = s.conn.Close()
	}

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("subscription ended", "id", s.id, "error", err)
	}
}

func (s *subscription) receive() error {
	for {
		var msg wsMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Type {
		case msgNext:
			if msg.ID != s.id {
				continue
			}
			note, ok := s.decodeNext(msg.Payload)
			if !ok {
				continue
			}
			select {
			case s.notes <- note:
			case <-s.closing:
				return nil
			}
		case msgPing:
			if err := s.write(wsMessage{Type: msgPong}); err != nil {
				return err
			}
		case msgPong:
		case msgError:
			var gqlErrs []Error
			if err := json.Unmarshal(msg.Payload, &gqlErrs); err != nil {
				gqlErrs = []Error{{Message: string(msg.Payload)}}
			}
			return &ResponseError{Operation: core.OpOnCreateNote, Errors: gqlErrs}
		case msgComplete:
			if msg.ID == s.id {
				return ErrSubscriptionCompleted
			}
		default:
			s.logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

func (s *subscription) decodeNext(payload json.RawMessage) (core.Note, bool) {
	var next struct {
		Data struct {
			OnCreateNote *core.Note `json:"onCreateNote"`
		} `json:"data"`
		Errors []Error `json:"errors"`
	}
	if err := json.Unmarshal(payload, &next); err != nil {
		s.logger.Warn("malformed next payload", "error", err)
		return core.Note{}, false
	}
	if len(next.Errors) > 0 {
		s.logger.Warn("subscription payload carried errors",
			"error", &ResponseError{Operation: core.OpOnCreateNote, Errors: next.Errors})
		return core.Note{}, false
	}
	if next.Data.OnCreateNote == nil {
		return core.Note{}, false
	}
	return *next.Data.OnCreateNote, true
}

package notify

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Template ids used by the auth flows.
const (
	TemplatePasswordReset     = "password-reset"
	TemplateEmailVerification = "email-verification"
)

// Message is one outbound notification.
type Message struct {
	TemplateID string            `json:"template_id"`
	Recipient  string            `json:"recipient"`
	Data       map[string]string `json:"data,omitempty"`
	QueuedAt   time.Time         `json:"queued_at"`
}

// Sink delivers messages. Implementations must be safe for use by a single
// dispatcher goroutine; the Dispatcher never calls Send concurrently.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpSink drops every message.
type NoOpSink struct{}

// Send discards msg.
func (NoOpSink) Send(context.Context, Message) error { return nil }

// ChannelSink hands messages to a buffered channel.
type ChannelSink struct {
	messages chan Message
}

// NewChannelSink returns a ChannelSink with the given buffer (minimum 1).
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{messages: make(chan Message, buffer)}
}

// Send blocks until msg is buffered or ctx is done.
func (s *ChannelSink) Send(ctx context.Context, msg Message) error {
	select {
	case s.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the receive side of the buffer.
func (s *ChannelSink) Messages() <-chan Message {
	return s.messages
}

// JSONWriterSink writes one JSON object per line. It is meant as a local
// outbox; the payload contains the one-time tokens.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewJSONWriterSink returns a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

// Send writes msg as one JSON line.
func (s *JSONWriterSink) Send(_ context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.writer.Write(data)
	return err
}

// LogSink records that a message was sent. Data values are never logged, only
// their keys.
type LogSink struct {
	Logger *zap.Logger
}

// Send logs the template, recipient and data keys.
func (s LogSink) Send(_ context.Context, msg Message) error {
	keys := make([]string, 0, len(msg.Data))
	for k := range msg.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.Logger.Info("notification sent",
		zap.String("template", msg.TemplateID),
		zap.String("recipient", msg.Recipient),
		zap.Strings("data_keys", keys),
	)
	return nil
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type gateSink struct {
	gate chan struct{}
	sent atomic.Int64
}

func (s *gateSink) Send(context.Context, Message) error {
	<-s.gate
	s.sent.Add(1)
	return nil
}

type failingSink struct{}

func (failingSink) Send(context.Context, Message) error { return errors.New("smtp down") }

func TestDispatcherDelivers(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{BufferSize: 4, DropIfFull: true}, sink, nil)
	defer d.Close()

	d.Enqueue(context.Background(), Message{TemplateID: TemplatePasswordReset, Recipient: "a@uni.test"})

	select {
	case msg := <-sink.Messages():
		if msg.Recipient != "a@uni.test" || msg.TemplateID != TemplatePasswordReset {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1, DropIfFull: true}, sink, nil)

	// One message is held by the worker, one sits in the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Enqueue(context.Background(), Message{Recipient: "x@uni.test"})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}

	close(sink.gate)
	d.Close()
	if got := sink.sent.Load() + int64(d.Dropped()); got != 10 {
		t.Fatalf("sent+dropped = %d, want 10", got)
	}
}

func TestDispatcherBlockingModeHonoursContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{BufferSize: 1}, sink, nil)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Enqueue(context.Background(), Message{})
	d.Enqueue(context.Background(), Message{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Enqueue(ctx, Message{})
	if time.Since(start) > time.Second {
		t.Fatal("Enqueue did not return after context expiry")
	}
}

func TestDispatcherCountsSinkFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewDispatcher(Config{BufferSize: 2}, failingSink{}, zap.New(core))
	d.Enqueue(context.Background(), Message{TemplateID: TemplateEmailVerification})
	d.Close()

	if d.Failed() != 1 {
		t.Fatalf("failed = %d, want 1", d.Failed())
	}
	if logs.FilterMessage("notification delivery failed").Len() != 1 {
		t.Fatal("expected a delivery failure log entry")
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Enqueue(context.Background(), Message{})
	d.Close()
	if d.Dropped() != 0 || d.Failed() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestEnqueueAfterCloseIsIgnored(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{BufferSize: 1}, sink, nil)
	d.Close()
	d.Enqueue(context.Background(), Message{})

	select {
	case <-sink.Messages():
		t.Fatal("message delivered after close")
	default:
	}
}

type stuckSink struct{}

func (stuckSink) Send(ctx context.Context, _ Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCloseReturnsWhenSinkHangs(t *testing.T) {
	d := NewDispatcher(Config{BufferSize: 2, SendTimeout: 20 * time.Millisecond}, stuckSink{}, nil)
	d.Enqueue(context.Background(), Message{})
	d.Enqueue(context.Background(), Message{})

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked on a sink that never returns")
	}
	if d.Failed() != 2 {
		t.Fatalf("failed = %d, want 2", d.Failed())
	}
}

type countingSink struct{ sent atomic.Int64 }

func (s *countingSink) Send(context.Context, Message) error {
	s.sent.Add(1)
	return nil
}

func TestEnqueueRacingCloseStrandsNothing(t *testing.T) {
	for round := 0; round < 50; round++ {
		sink := &countingSink{}
		d := NewDispatcher(Config{BufferSize: 4}, sink, nil)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					d.Enqueue(context.Background(), Message{})
				}
			}()
		}
		d.Close()
		wg.Wait()

		if n := len(d.ch); n != 0 {
			t.Fatalf("round %d: %d messages left undelivered after Close", round, n)
		}
		if got := sink.sent.Load() + int64(d.Dropped()); got > 160 {
			t.Fatalf("round %d: sent+dropped = %d, want <= 160", round, got)
		}
	}
}

func TestLogSinkOmitsValues(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := LogSink{Logger: zap.New(core)}
	err := sink.Send(context.Background(), Message{
		TemplateID: TemplatePasswordReset,
		Recipient:  "a@uni.test",
		Data:       map[string]string{"token": "secret-token-value"},
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	for _, f := range entries[0].Context {
		if strings.Contains(f.String, "secret-token-value") {
			t.Fatal("token value leaked into log")
		}
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	if err := sink.Send(context.Background(), Message{TemplateID: "t", Recipient: "r"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	var got Message
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TemplateID != "t" || got.Recipient != "r" {
		t.Fatalf("unexpected %+v", got)
	}
}

package nats

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Strob0t/customerapi/internal/logger"
	"github.com/Strob0t/customerapi/internal/port/messagequeue"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url, "")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

func TestNewMsg_CarriesRequestID(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-42")
	msg := newMsg(ctx, messagequeue.SubjectCustomerCreated, []byte(`{}`))

	if msg.Subject != messagequeue.SubjectCustomerCreated {
		t.Errorf("subject = %q", msg.Subject)
	}
	if got := msg.Header.Get(headerRequestID); got != "req-42" {
		t.Errorf("header = %q, want %q", got, "req-42")
	}
}

func TestNewMsg_NoRequestID(t *testing.T) {
	msg := newMsg(context.Background(), "customers.created", []byte(`{}`))
	if got := msg.Header.Get(headerRequestID); got != "" {
		t.Errorf("expected no request id header, got %q", got)
	}
}

func TestContextFromHeaders(t *testing.T) {
	h := nats.Header{}
	h.Set(headerRequestID, "abc")
	if got := logger.RequestID(contextFromHeaders(context.Background(), h)); got != "abc" {
		t.Errorf("request ID = %q, want abc", got)
	}
	if got := logger.RequestID(contextFromHeaders(context.Background(), nil)); got != "" {
		t.Errorf("expected empty request ID for nil headers, got %q", got)
	}
}

func TestQueue_PublishRejectsInvalidPayload(t *testing.T) {
	q := testConnect(t)
	if err := q.Publish(context.Background(), messagequeue.SubjectCustomerCreated, []byte("not-json")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestQueue_PublishSubscribe(t *testing.T) {
	q := testConnect(t)
	subject := messagequeue.SubjectCustomerCreated

	want := messagequeue.CustomerCreatedPayload{
		EmployeeID: 1001,
		FirstName:  "Jane",
		LastName:   "Doe",
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var (
		mu       sync.Mutex
		received *messagequeue.CustomerCreatedPayload
		gotReqID string
		done     = make(chan struct{})
		once     sync.Once
	)

	stop, err := q.Subscribe(context.Background(), subject, func(ctx context.Context, _ string, d []byte) error {
		var got messagequeue.CustomerCreatedPayload
		if err := json.Unmarshal(d, &got); err != nil {
			return err
		}
		mu.Lock()
		received = &got
		gotReqID = logger.RequestID(ctx)
		mu.Unlock()
		once.Do(func() { close(done) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithRequestID(context.Background(), "req-abc-123")
	if err := q.Publish(ctx, subject, data); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	mu.Lock()
	defer mu.Unlock()

	if received == nil {
		t.Fatal("handler was not called")
	}
	if received.EmployeeID != want.EmployeeID {
		t.Errorf("employee id = %d, want %d", received.EmployeeID, want.EmployeeID)
	}
	if gotReqID != "req-abc-123" {
		t.Errorf("request ID = %q, want %q", gotReqID, "req-abc-123")
	}
}

func TestQueue_IsConnected(t *testing.T) {
	q := testConnect(t)

	if !q.IsConnected() {
		t.Error("IsConnected() = false after Connect, want true")
	}
}

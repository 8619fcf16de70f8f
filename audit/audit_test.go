package audit

import (
	"sync"
	"testing"
	"time"
)

func TestLog_DeliversToHandler(t *testing.T) {
	var mu sync.Mutex
	var received []Event

	logger := New(10, WithHandler(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}))

	logger.Log(Event{UserID: "u1", Action: ActionLogin, Result: ResultSuccess})
	logger.Log(Event{Action: ActionLogin, Result: ResultFailure, Details: "unknown_user"})

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("handler received %d events, want 2", len(received))
	}
	if received[0].UserID != "u1" || received[0].Action != ActionLogin {
		t.Errorf("first event = %+v", received[0])
	}
	if received[1].Result != ResultFailure {
		t.Errorf("second event result = %q, want %q", received[1].Result, ResultFailure)
	}
}

func TestLog_FillsTimestamp(t *testing.T) {
	var mu sync.Mutex
	var got Event

	logger := New(1, WithHandler(func(e Event) {
		mu.Lock()
		got = e
		mu.Unlock()
	}))

	before := time.Now()
	logger.Log(Event{Action: ActionLogout, Result: ResultSuccess})
	logger.Close()

	mu.Lock()
	defer mu.Unlock()
	if got.Timestamp.Before(before.Add(-time.Second)) {
		t.Error("Log should stamp events that carry no timestamp")
	}
}

func TestLog_AfterCloseDoesNotBlock(t *testing.T) {
	logger := New(1)
	logger.Close()

	done := make(chan struct{})
	go func() {
		logger.Log(Event{Action: ActionLogin, Result: ResultSuccess})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Log blocked after Close")
	}
}

func TestMultipleHandlers(t *testing.T) {
	var mu sync.Mutex
	counts := make(map[int]int)

	logger := New(10,
		WithHandler(func(Event) { mu.Lock(); counts[0]++; mu.Unlock() }),
		WithHandler(func(Event) { mu.Lock(); counts[1]++; mu.Unlock() }),
	)

	logger.Log(Event{Action: ActionGateDeny, Result: ResultDenied})
	logger.Close()

	mu.Lock()
	defer mu.Unlock()
	if counts[0] != 1 || counts[1] != 1 {
		t.Errorf("handler counts = %v, want both 1", counts)
	}
}

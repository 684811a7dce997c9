package optimizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type outcome struct {
	result *Result
	err    error
}

// scriptedAttempter replays outcomes in order and repeats the last one.
type scriptedAttempter struct {
	mu       sync.Mutex
	outcomes []outcome
	requests []Request
}

func (s *scriptedAttempter) Attempt(_ context.Context, req Request) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	out := s.outcomes[idx]
	return out.result, out.err
}

func (s *scriptedAttempter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type waitRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (w *waitRecorder) wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

func newTestClient(t *testing.T, attempter Attempter, cfg Config) (*Client, *waitRecorder) {
	t.Helper()

	c, err := New(attempter, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := &waitRecorder{}
	c.wait = rec.wait
	c.newID = func() string { return "inv-1" }
	return c, rec
}

func transientErr() error {
	return &TransportError{Err: errors.New("connection reset by peer")}
}

package engine

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"exec-engine/internal/config"
)

type recordingReporter struct {
	mu      sync.Mutex
	retries []int
	letters []DeadLetter
}

func (r *recordingReporter) RetryScheduled(_ string, attempt int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries = append(r.retries, attempt)
}

func (r *recordingReporter) DeadLettered(letter DeadLetter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.letters = append(r.letters, letter)
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"net error", &net.DNSError{Err: "lookup failed", IsTimeout: true}, true},
		{"connection keyword", errors.New("connection refused by venue"), true},
		{"timeout keyword", errors.New("request timeout"), true},
		{"temporary keyword", errors.New("temporary outage"), true},
		{"business error", errors.New("unknown algorithm: midpoint"), false},
		{"wrapped deadline", errors.Join(errors.New("step failed"), context.DeadlineExceeded), true},
	}

	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSupervisor_BackoffDelay(t *testing.T) {
	s := NewSupervisor(config.RetryConfig{
		MaxAttempts: 3,
		MinDelay:    5 * time.Second,
		MaxDelay:    40 * time.Second,
	}, NewRegistry(), nil, nil)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 40 * time.Second},
	}
	for _, tc := range cases {
		if got := s.backoffDelay(tc.attempt); got != tc.want {
			t.Errorf("backoffDelay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestSupervisor_RetryableReinstatesWithStateIntact(t *testing.T) {
	registry := NewRegistry()
	reporter := &recordingReporter{}
	s := NewSupervisor(config.RetryConfig{
		MaxAttempts: 3,
		MinDelay:    time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}, registry, reporter, nil)

	now := time.Now().UTC()
	entry, err := registry.Register(testOrder("o-1", "100"), decimal.NewFromInt(50), now)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := entry.State.ApplyFill(decimal.NewFromInt(30), decimal.NewFromInt(50), now); err != nil {
		t.Fatalf("ApplyFill returned error: %v", err)
	}

	s.HandleFailure(context.Background(), entry, errors.New("connection reset"))

	if _, ok := registry.Get("o-1"); ok {
		t.Fatalf("order still active immediately after a retryable failure")
	}

	deadline := time.Now().Add(time.Second)
	for {
		if got, ok := registry.Get("o-1"); ok {
			if !got.State.Executed.Equal(decimal.NewFromInt(30)) {
				t.Fatalf("executed after reinstate = %s, want 30", got.State.Executed)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("order was not reinstated after the backoff delay")
		}
		time.Sleep(time.Millisecond)
	}

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.retries) != 1 || reporter.retries[0] != 1 {
		t.Fatalf("reported retries = %v, want [1]", reporter.retries)
	}
	if len(reporter.letters) != 0 {
		t.Fatalf("unexpected dead letters: %v", reporter.letters)
	}
}

func TestSupervisor_ExhaustedAttemptsDeadLetter(t *testing.T) {
	registry := NewRegistry()
	reporter := &recordingReporter{}
	s := NewSupervisor(config.RetryConfig{
		MaxAttempts: 2,
		MinDelay:    time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}, registry, reporter, nil)

	entry, err := registry.Register(testOrder("o-1", "100"), decimal.NewFromInt(50), time.Now().UTC())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	cause := errors.New("venue timeout")
	for attempt := 1; attempt <= 3; attempt++ {
		s.HandleFailure(context.Background(), entry, cause)
		if attempt > s.cfg.MaxAttempts {
			break
		}
		// 等待重试恢复后再触发下一次失败
		deadline := time.Now().Add(time.Second)
		for {
			if _, ok := registry.Get("o-1"); ok {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("order was not reinstated before attempt %d", attempt+1)
			}
			time.Sleep(time.Millisecond)
		}
	}

	letters := s.DeadLetters()
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	if letters[0].Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", letters[0].Attempts)
	}
	if letters[0].OrderID != "o-1" {
		t.Fatalf("dead letter order = %s, want o-1", letters[0].OrderID)
	}
	if _, ok := registry.Get("o-1"); ok {
		t.Fatalf("exhausted order still active")
	}
}

func TestSupervisor_FatalEvictsImmediately(t *testing.T) {
	registry := NewRegistry()
	reporter := &recordingReporter{}
	s := NewSupervisor(config.RetryConfig{MaxAttempts: 3, MinDelay: time.Millisecond}, registry, reporter, nil)

	now := time.Now().UTC()
	entry, err := registry.Register(testOrder("o-1", "100"), decimal.NewFromInt(50), now)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := entry.State.ApplyFill(decimal.NewFromInt(60), decimal.NewFromInt(50), now); err != nil {
		t.Fatalf("ApplyFill returned error: %v", err)
	}

	s.HandleFailure(context.Background(), entry, errors.New("unknown algorithm: midpoint"))

	if _, ok := registry.Get("o-1"); ok {
		t.Fatalf("fatally failed order still active")
	}

	letters := s.DeadLetters()
	if len(letters) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(letters))
	}
	// 部分成交在死信中保持不变
	if !letters[0].State.Executed.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("dead letter executed = %s, want 60", letters[0].State.Executed)
	}
	if !letters[0].State.Remaining.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("dead letter remaining = %s, want 40", letters[0].State.Remaining)
	}

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if len(reporter.letters) != 1 {
		t.Fatalf("reporter letters = %d, want 1", len(reporter.letters))
	}
}

func TestSupervisor_MarkRecoveredResetsAttempts(t *testing.T) {
	registry := NewRegistry()
	s := NewSupervisor(config.RetryConfig{
		MaxAttempts: 1,
		MinDelay:    time.Millisecond,
	}, registry, nil, nil)

	entry, err := registry.Register(testOrder("o-1", "100"), decimal.NewFromInt(50), time.Now().UTC())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	s.HandleFailure(context.Background(), entry, errors.New("timeout"))
	s.MarkRecovered("o-1")

	s.mu.Lock()
	if got := s.attempts["o-1"]; got != 0 {
		s.mu.Unlock()
		t.Fatalf("attempts after recovery = %d, want 0", got)
	}
	s.mu.Unlock()

	if len(s.DeadLetters()) != 0 {
		t.Fatalf("unexpected dead letters after a single retryable failure")
	}
}

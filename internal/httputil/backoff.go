// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the scholarly-graph
// backends: adaptive backoff, failure classification and client setup.
package httputil

import (
	"context"
	"time"
)

// Multipliers is the escalation applied to the base delay on consecutive
// failures. The last entry is the ceiling.
var Multipliers = []int{2, 4, 8, 16, 32, 64, 128, 256, 512, 1024}

// Base delays used by the graph backends. Tests override these to avoid
// real sleeps.
var (
	SingleBaseDelay = 100 * time.Millisecond
	BulkBaseDelay   = 1 * time.Second
)

// DelayStrategy tracks consecutive failures of one fetch operation.
// A DelayStrategy is not safe for concurrent use.
type DelayStrategy struct {
	base     time.Duration
	failures int
}

// NewDelayStrategy returns a strategy with the given base delay.
func NewDelayStrategy(base time.Duration) *DelayStrategy {
	return &DelayStrategy{base: base}
}

// Delay returns the wait before the next request. A successful call resets
// the failure count and returns the base delay. A failed call increments
// the count and returns base times Multipliers[min(failures, last)].
func (s *DelayStrategy) Delay(success bool) time.Duration {
	if success {
		s.failures = 0
		return s.base
	}
	s.failures++
	i := s.failures - 1
	if i >= len(Multipliers) {
		i = len(Multipliers) - 1
	}
	return s.base * time.Duration(Multipliers[i])
}

// Failures returns the current consecutive failure count.
func (s *DelayStrategy) Failures() int {
	return s.failures
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"govportal/internal/pkg/apperr"
)

func TestBreaker_OpensAfterFailureRateInWindow(t *testing.T) {
	// 6 次调用中 4 次失败，无论顺序如何，第 7 次都必须快速失败
	tests := []struct {
		name    string
		pattern []bool
	}{
		{"F F S F S F", []bool{false, false, true, false, true, false}},
		{"F F F F S S", []bool{false, false, false, false, true, true}},
		{"S S F F F F", []bool{true, true, false, false, false, false}},
		{"F S F S F F", []bool{false, true, false, true, false, false}},
		{"S F F F F S", []bool{true, false, false, false, false, true}},
		{"F F F S S F", []bool{false, false, false, true, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New[bool]("inventory-service", DefaultConfig())
			downstreamCalls := 0

			for i, ok := range tt.pattern {
				v, err := b.Execute(context.Background(), func(ctx context.Context) (bool, error) {
					downstreamCalls++
					if ok {
						return true, nil
					}
					return false, errors.New("connection refused")
				})
				if ok && (err != nil || !v) {
					t.Fatalf("call %d: successful call must return its own result, got %v, %v", i+1, v, err)
				}
			}

			if b.State() != gobreaker.StateOpen {
				t.Fatalf("expected breaker to be open after 6th call, got %s", b.State())
			}

			_, err := b.Execute(context.Background(), func(ctx context.Context) (bool, error) {
				downstreamCalls++
				return true, nil
			})
			if !apperr.IsTransient(err) {
				t.Fatalf("expected transient fast-fail error, got %v", err)
			}
			if downstreamCalls != 6 {
				t.Errorf("7th call must not reach the downstream, got %d downstream calls", downstreamCalls)
			}
		})
	}
}

func TestBreaker_StaysClosedAtHalfFailuresBelowMinimum(t *testing.T) {
	b := New[bool]("profile", DefaultConfig())
	// 5 次调用 3 次失败，未达到最少调用数
	for _, ok := range []bool{false, true, false, true, false} {
		_, _ = b.Execute(context.Background(), func(ctx context.Context) (bool, error) {
			if ok {
				return true, nil
			}
			return false, errors.New("timeout")
		})
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b := New[bool]("catalog", DefaultConfig())
	// 10 次调用 4 次失败，40% 低于阈值
	pattern := []bool{false, true, true, false, true, true, false, true, false, true}
	for _, ok := range pattern {
		_, _ = b.Execute(context.Background(), func(ctx context.Context) (bool, error) {
			if ok {
				return true, nil
			}
			return false, errors.New("timeout")
		})
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestBreaker_StaysClosedBelowMinimumCalls(t *testing.T) {
	b := New[int]("profile", DefaultConfig())
	for i := 0; i < 4; i++ {
		_, _ = b.Execute(context.Background(), func(ctx context.Context) (int, error) {
			return 0, errors.New("timeout")
		})
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("4 calls are below the minimum, breaker must stay closed, got %s", b.State())
	}
}

func TestBreaker_BusinessErrorsDoNotCount(t *testing.T) {
	b := New[int]("catalog", DefaultConfig())
	for i := 0; i < 10; i++ {
		_, err := b.Execute(context.Background(), func(ctx context.Context) (int, error) {
			return 0, apperr.NotFound(apperr.CodeItemAbsent, "item %d not found", i)
		})
		if !apperr.IsNotFound(err) {
			t.Fatalf("business error must pass through unchanged, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("not-found responses must not open the breaker, got %s", b.State())
	}
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OpenTimeout = 20 * time.Millisecond
	b := New[int]("inventory-service", cfg)

	for i := 0; i < 6; i++ {
		_, _ = b.Execute(context.Background(), func(ctx context.Context) (int, error) {
			return 0, errors.New("boom")
		})
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	time.Sleep(40 * time.Millisecond)

	v, err := b.Execute(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("probe call should pass through, got %d, %v", v, err)
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("successful probe should close the breaker, got %s", b.State())
	}
}

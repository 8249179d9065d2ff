// internal/pkg/breaker/breaker.go
package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/metrics"
)

// Config 对应配置文件中的 breaker 段。
type Config struct {
	WindowSize           int           `yaml:"windowSize"`
	FailureRateThreshold float64       `yaml:"failureRateThreshold"`
	MinimumCalls         int           `yaml:"minimumCalls"`
	OpenTimeout          time.Duration `yaml:"openTimeout"`
	HalfOpenCalls        uint32        `yaml:"halfOpenCalls"`
}

// DefaultConfig 最近 10 次调用失败率达到 50% 即熔断 5 秒，至少 6 次调用后才开始计算失败率
func DefaultConfig() Config {
	return Config{
		WindowSize:           10,
		FailureRateThreshold: 0.5,
		MinimumCalls:         6,
		OpenTimeout:          5 * time.Second,
		HalfOpenCalls:        1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = d.FailureRateThreshold
	}
	if c.MinimumCalls <= 0 {
		c.MinimumCalls = d.MinimumCalls
	}
	if c.MinimumCalls > c.WindowSize {
		c.MinimumCalls = c.WindowSize
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenCalls == 0 {
		c.HalfOpenCalls = d.HalfOpenCalls
	}
	return c
}

// Breaker 在 gobreaker 之上提供基于最近 N 次调用的滑动窗口失败率判断。
type Breaker[T any] struct {
	name   string
	cb     *gobreaker.CircuitBreaker[T]
	window *window
}

func New[T any](name string, cfg Config) *Breaker[T] {
	cfg = cfg.withDefaults()
	w := newWindow(cfg.WindowSize)
	b := &Breaker[T]{name: name, window: w}

	b.cb = gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenCalls,
		Timeout:     cfg.OpenTimeout,
		// gobreaker 只在失败后调用 ReadyToTrip。窗口内失败率超限时，即使本次调用成功也按失败上报，
		// 让 onFailure 走到 ReadyToTrip 打开熔断；调用方拿到的仍是本次调用的真实结果。
		IsSuccessful: func(err error) bool {
			ok := !countsAsFailure(err)
			w.record(ok)
			return ok && !w.exceeds(cfg.MinimumCalls, cfg.FailureRateThreshold)
		},
		ReadyToTrip: func(gobreaker.Counts) bool {
			return w.exceeds(cfg.MinimumCalls, cfg.FailureRateThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen || to == gobreaker.StateClosed {
				w.reset()
			}
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			logger.L().Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return b
}

// Execute 在熔断保护下执行 fn。熔断打开时立即返回 transient 错误，不会调用 fn。
func (b *Breaker[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	out, err := b.cb.Execute(func() (T, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return out, apperr.CircuitOpen(err, "%s is unavailable", b.name)
	}
	return out, err
}

func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

// 业务性错误 (校验失败、找不到) 说明下游是健康的，不计入失败率。
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	switch apperr.KindOf(err) {
	case apperr.KindTransient, apperr.KindInternal:
		return true
	default:
		return false
	}
}

// window 是固定容量的环形缓冲，记录最近 size 次调用的结果。
type window struct {
	mu       sync.Mutex
	outcomes []bool
	next     int
	filled   int
}

func newWindow(size int) *window {
	return &window{outcomes: make([]bool, size)}
}

func (w *window) record(success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.outcomes[w.next] = success
	w.next = (w.next + 1) % len(w.outcomes)
	if w.filled < len(w.outcomes) {
		w.filled++
	}
}

func (w *window) snapshot() (calls, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < w.filled; i++ {
		if !w.outcomes[i] {
			failures++
		}
	}
	return w.filled, failures
}

// exceeds 报告窗口调用数达到 minCalls 且失败率不低于 threshold。
func (w *window) exceeds(minCalls int, threshold float64) bool {
	calls, failures := w.snapshot()
	if calls == 0 || calls < minCalls {
		return false
	}
	return float64(failures)/float64(calls) >= threshold
}

func (w *window) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next = 0
	w.filled = 0
}

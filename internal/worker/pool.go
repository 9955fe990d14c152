// Package worker runs request pipelines on a bounded goroutine pool.
package worker

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/metrics"
)

// ErrClosed is returned by Submit after Release.
var ErrClosed = errors.New("worker pool closed")

// Config defines the pool size and idle expiry.
type Config struct {
	// Size is the maximum number of concurrently running tasks.
	Size int
	// ExpiryDuration is how long an idle goroutine is kept.
	ExpiryDuration time.Duration
}

// Pool is a nonblocking worker pool: a full pool rejects instead of queueing.
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger
	closed atomic.Bool
}

// New creates a pool.
func New(cfg Config, logger *zap.Logger) (*Pool, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", cfg.Size)
	}
	if cfg.ExpiryDuration <= 0 {
		cfg.ExpiryDuration = 10 * time.Second
	}

	p := &Pool{logger: logger}
	pool, err := ants.NewPool(cfg.Size,
		ants.WithExpiryDuration(cfg.ExpiryDuration),
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v any) {
			metrics.WorkerPanicsTotal.Inc()
			logger.Error("Worker panic recovered", zap.Any("panic", v), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create ants pool: %w", err)
	}
	p.pool = pool
	return p, nil
}

// Submit schedules task. A full pool returns domain.ErrOverloaded.
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := p.pool.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			metrics.WorkerTasksRejectedTotal.Inc()
			return fmt.Errorf("%w: %d tasks running", domain.ErrOverloaded, p.pool.Running())
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrClosed
		}
		return fmt.Errorf("submit task: %w", err)
	}
	return nil
}

// Running returns the number of running tasks.
func (p *Pool) Running() int { return p.pool.Running() }

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return p.pool.Cap() }

// Release stops accepting work and waits up to timeout for running tasks.
func (p *Pool) Release(timeout time.Duration) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("release worker pool: %w", err)
	}
	return nil
}

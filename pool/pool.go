// Package pool provides a bounded worker pool with backpressure, used to
// cap how many tools a batch runs concurrently.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Common errors.
var (
	ErrPoolFull     = errors.New("worker pool is full")
	ErrPoolShutdown = errors.New("worker pool is shutdown")
)

// Task represents a unit of work for the pool.
type Task struct {
	SubmittedAt time.Time
	Fn          func()
}

// Pool manages a bounded pool of workers. Submit satisfies the executor's
// WorkerPool interface.
type Pool interface {
	// Submit schedules a function, blocking or failing per the
	// backpressure strategy.
	Submit(ctx context.Context, fn func()) error

	// Stats returns current pool statistics.
	Stats() Stats

	// Shutdown drains queued tasks and stops the workers.
	Shutdown(ctx context.Context) error
}

// Config configures the worker pool.
type Config struct {
	// Workers is the number of worker goroutines.
	Workers int

	// QueueSize is the size of the task queue.
	QueueSize int

	// BackpressureStrategy defines behavior when the queue is full.
	BackpressureStrategy BackpressureStrategy
}

// BackpressureStrategy defines how to handle a full queue.
type BackpressureStrategy int

const (
	// StrategyBlock blocks until space is available.
	StrategyBlock BackpressureStrategy = iota

	// StrategyReject immediately rejects new tasks.
	StrategyReject

	// StrategyCallerRuns executes in the caller's goroutine.
	StrategyCallerRuns
)

// Stats contains pool statistics.
type Stats struct {
	ActiveWorkers  int32
	QueueLength    int
	QueueCapacity  int
	TotalSubmitted int64
	TotalCompleted int64
	TotalRejected  int64
}

// DefaultConfig returns default pool configuration.
func DefaultConfig() Config {
	return Config{
		Workers:              8,
		QueueSize:            64,
		BackpressureStrategy: StrategyBlock,
	}
}

// pool is the concrete implementation.
type pool struct {
	config     Config
	taskQueue  chan Task
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	shutdown   int32

	activeWorkers  int32
	totalSubmitted int64
	totalCompleted int64
	totalRejected  int64
}

// New creates a worker pool and starts its workers.
func New(config Config) (Pool, error) {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = config.Workers * 8
	}

	p := &pool{
		config:     config,
		taskQueue:  make(chan Task, config.QueueSize),
		shutdownCh: make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.run()
	}

	return p, nil
}

// Submit implements Pool.Submit.
func (p *pool) Submit(ctx context.Context, fn func()) error {
	if atomic.LoadInt32(&p.shutdown) == 1 {
		return ErrPoolShutdown
	}

	task := Task{Fn: fn, SubmittedAt: time.Now()}
	atomic.AddInt64(&p.totalSubmitted, 1)

	switch p.config.BackpressureStrategy {
	case StrategyReject:
		select {
		case p.taskQueue <- task:
			return nil
		default:
			atomic.AddInt64(&p.totalRejected, 1)
			return ErrPoolFull
		}

	case StrategyCallerRuns:
		select {
		case p.taskQueue <- task:
			return nil
		default:
			p.executeTask(task)
			return nil
		}

	default: // StrategyBlock
		select {
		case p.taskQueue <- task:
			return nil
		case <-ctx.Done():
			atomic.AddInt64(&p.totalRejected, 1)
			return ctx.Err()
		case <-p.shutdownCh:
			return ErrPoolShutdown
		}
	}
}

// Stats implements Pool.Stats.
func (p *pool) Stats() Stats {
	return Stats{
		ActiveWorkers:  atomic.LoadInt32(&p.activeWorkers),
		QueueLength:    len(p.taskQueue),
		QueueCapacity:  cap(p.taskQueue),
		TotalSubmitted: atomic.LoadInt64(&p.totalSubmitted),
		TotalCompleted: atomic.LoadInt64(&p.totalCompleted),
		TotalRejected:  atomic.LoadInt64(&p.totalRejected),
	}
}

// Shutdown implements Pool.Shutdown.
func (p *pool) Shutdown(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.shutdown, 0, 1) {
		return nil
	}

	close(p.shutdownCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pool) run() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.taskQueue:
			atomic.AddInt32(&p.activeWorkers, 1)
			p.executeTask(task)
			atomic.AddInt32(&p.activeWorkers, -1)

		case <-p.shutdownCh:
			// Drain what was already accepted.
			for {
				select {
				case task := <-p.taskQueue:
					p.executeTask(task)
				default:
					return
				}
			}
		}
	}
}

func (p *pool) executeTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			// A panicking task must not take a worker down.
			_ = r
		}
		atomic.AddInt64(&p.totalCompleted, 1)
	}()

	if task.Fn != nil {
		task.Fn()
	}
}

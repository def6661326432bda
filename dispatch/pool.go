// Package dispatch runs pending work on a fixed set of persistent workers
// fed by a bounded FIFO queue.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
)

var (
	ErrClosed = errors.New("dispatch pool is closed")
)

// Task is processed by exactly one worker.
type Task interface {
	Process()
}

type TaskFunc func()

func (f TaskFunc) Process() {
	f()
}

type Pool struct {
	name    string
	queue   chan Task
	workers int
	logger  log.Logger
	metrics poolMetrics

	mu         sync.RWMutex
	closed     bool
	closing    chan struct{}
	submitters sync.WaitGroup
	running    sync.WaitGroup

	processed atomic.Uint64
	panics    atomic.Uint64
}

// New starts the workers right away. They live until Close.
func New(name string, logger log.Logger, opts ...Option) *Pool {
	options := newOptions()
	for _, opt := range opts {
		opt(options)
	}

	p := &Pool{
		name:    name,
		queue:   make(chan Task, options.queueSize),
		workers: options.workers,
		logger:  logger,
		metrics: newPoolMetrics(name),
		closing: make(chan struct{}),
	}
	for i := 0; i < p.workers; i++ {
		p.running.Add(1)
		go p.work(i)
	}
	return p
}

// Submit enqueues the task. It blocks while the queue is full.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	select {
	case p.queue <- task:
		return nil
	default:
	}

	p.metrics.blockedSubmit.Inc()
	p.logger.Warn(p.logCtx(context.Background()), "dispatch queue is full, submit is blocked", log.Any("queueSize", cap(p.queue)))

	select {
	case p.queue <- task:
		return nil
	case <-p.closing:
		return ErrClosed
	}
}

func (p *Pool) Name() string {
	return p.name
}

func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

func (p *Pool) Processed() uint64 {
	return p.processed.Load()
}

func (p *Pool) Panics() uint64 {
	return p.panics.Load()
}

// Close stops accepting tasks, lets the workers drain the queue and waits for them.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.closing)
	p.submitters.Wait()
	close(p.queue)
	p.running.Wait()
	return nil
}

func (p *Pool) work(id int) {
	defer p.running.Done()

	ctx := log.ToContext(p.logCtx(context.Background()), log.Any("worker", id))
	p.logger.Debug(ctx, "dispatch worker started")

	for task := range p.queue {
		if !p.process(ctx, task) {
			// the panicked goroutine gives its slot to a fresh one
			p.running.Add(1)
			go p.work(id)
			return
		}
	}

	p.logger.Debug(ctx, "dispatch worker stopped")
}

func (p *Pool) process(ctx context.Context, task Task) (ok bool) {
	defer func() {
		p.processed.Add(1)
		p.metrics.processed.Inc()

		r := recover()
		if r == nil {
			return
		}
		ok = false
		p.panics.Add(1)
		p.metrics.panics.Inc()

		err, isErr := r.(error)
		if !isErr {
			err = fmt.Errorf("%v", r)
		}
		stack := make([]byte, 4<<10)
		length := runtime.Stack(stack, false)
		p.logger.Error(
			ctx,
			errors.WithMessage(err, "callback panicked on dispatch worker, worker is replaced"),
			log.String("stack", string(stack[:length])),
		)
	}()

	task.Process()
	return true
}

func (p *Pool) logCtx(ctx context.Context) context.Context {
	return log.ToContext(ctx, log.String("pool", p.name))
}

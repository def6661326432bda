package cqlx

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/dispatch"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/isp-kit/log"
	"github.com/txix-open/isp-kit/requestid"
)

type Kind int

const (
	KindPrepare Kind = iota
	KindExecute
)

func (k Kind) String() string {
	switch k {
	case KindPrepare:
		return "prepare"
	case KindExecute:
		return "execute"
	default:
		return "unknown"
	}
}

type invocationState int

const (
	notInvoked invocationState = iota
	invoking
	invoked
)

type slot int

const (
	successSlot slot = iota
	failureSlot
)

type successCallback[T any] struct {
	withPayload func(T)
	plain       func()
}

// Future wraps one pending operation.
// Each registered callback runs at most once and only one of them runs at all.
type Future[T any] struct {
	id     string
	kind   Kind
	op     driver.Operation
	pool   *dispatch.Pool
	build  func(payload any) (T, error)
	logger log.Logger

	mu        sync.Mutex
	onSuccess *successCallback[T]
	onFailure func(err error)
	state     invocationState
	enqueued  bool
	processed bool
	waited    bool
	invoker   uint64

	closeRequested bool

	done     chan struct{}
	doneOnce sync.Once

	payloadOnce sync.Once
	payload     T
	payloadErr  error

	closeOnce sync.Once
	closeErr  error
}

func newFuture[T any](
	kind Kind,
	op driver.Operation,
	pool *dispatch.Pool,
	logger log.Logger,
	build func(payload any) (T, error),
) *Future[T] {
	f := &Future[T]{
		id:     requestid.Next(),
		kind:   kind,
		op:     op,
		pool:   pool,
		build:  build,
		logger: logger,
		done:   make(chan struct{}),
	}
	runtime.AddCleanup(f, func(op driver.Operation) {
		_ = op.Close()
	}, op)
	return f
}

func (f *Future[T]) ID() string {
	return f.id
}

func (f *Future[T]) Kind() Kind {
	return f.kind
}

func (f *Future[T]) Ready() bool {
	return f.op.Ready()
}

// OnSuccess registers a callback receiving the payload of a successful operation.
// It runs inline when the operation is already complete, otherwise on a dispatch worker.
// Registration blocks only while the dispatch queue is full.
func (f *Future[T]) OnSuccess(callback func(value T)) error {
	if callback == nil {
		return errors.WithMessage(ErrInvalidArgument, "success callback is required")
	}
	return f.register(successSlot, &successCallback[T]{withPayload: callback}, nil)
}

// OnSuccessFunc is OnSuccess for callers not interested in the payload, which is never built.
func (f *Future[T]) OnSuccessFunc(callback func()) error {
	if callback == nil {
		return errors.WithMessage(ErrInvalidArgument, "success callback is required")
	}
	return f.register(successSlot, &successCallback[T]{plain: callback}, nil)
}

// OnFailure registers a callback receiving *ExecutionError of a failed operation.
func (f *Future[T]) OnFailure(callback func(err error)) error {
	if callback == nil {
		return errors.WithMessage(ErrInvalidArgument, "failure callback is required")
	}
	return f.register(failureSlot, nil, callback)
}

func (f *Future[T]) register(s slot, success *successCallback[T], failure func(err error)) error {
	f.mu.Lock()
	switch s {
	case successSlot:
		if f.onSuccess != nil {
			f.mu.Unlock()
			return errors.WithMessage(ErrDuplicateCallback, "on success")
		}
		f.onSuccess = success
	case failureSlot:
		if f.onFailure != nil {
			f.mu.Unlock()
			return errors.WithMessage(ErrDuplicateCallback, "on failure")
		}
		f.onFailure = failure
	}

	if f.op.Ready() {
		run := f.claimLocked()
		f.mu.Unlock()
		if run != nil {
			f.invoke(run)
		}
		return nil
	}

	defer f.mu.Unlock()
	if f.enqueued {
		return nil
	}
	err := f.pool.Submit(f)
	if err != nil {
		switch s {
		case successSlot:
			f.onSuccess = nil
		case failureSlot:
			f.onFailure = nil
		}
		return errors.WithMessagef(err, "dispatch %s future", f.kind)
	}
	f.enqueued = true
	return nil
}

// Process is run by a dispatch worker.
func (f *Future[T]) Process() {
	f.op.Wait()

	f.mu.Lock()
	f.processed = true
	run := f.claimLocked()
	f.mu.Unlock()

	if run != nil {
		f.invoke(run)
		return
	}
	f.settle()

	f.mu.Lock()
	release := f.closeRequested
	f.mu.Unlock()
	if release {
		_ = f.release()
	}
}

// Await blocks until the operation is complete and any callback dispatched for it has returned.
// Without callbacks it waits on the operation directly. Calling it again only waits for the same settlement.
// Called from the future's own callback it returns at once: the operation is complete by then.
func (f *Future[T]) Await() *Future[T] {
	f.mu.Lock()
	if f.state == invoking && f.invoker != 0 && f.invoker == goroutineID() {
		f.mu.Unlock()
		return f
	}
	if f.waited {
		f.mu.Unlock()
		<-f.done
		return f
	}
	f.waited = true
	enqueued := f.enqueued
	f.mu.Unlock()

	if !enqueued {
		f.op.Wait()
		f.settle()
	}
	<-f.done
	return f
}

// Get awaits the operation and returns its payload.
// The payload is built once and is the same value a success callback receives.
func (f *Future[T]) Get() (T, error) {
	f.Await()
	if f.op.ErrorCode() != driver.CodeOK {
		var zero T
		return zero, newExecutionError(f.kind, f.op)
	}
	return f.value()
}

// Err awaits the operation and returns *ExecutionError if it failed.
func (f *Future[T]) Err() error {
	f.Await()
	if f.op.ErrorCode() != driver.CodeOK {
		return newExecutionError(f.kind, f.op)
	}
	return nil
}

// Close releases the operation. The payload is unavailable afterwards unless it was already taken.
// While a callback is dispatched or running the release happens once it has returned.
func (f *Future[T]) Close() error {
	f.mu.Lock()
	if f.state == invoking || (f.enqueued && !f.processed) {
		f.closeRequested = true
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()
	return f.release()
}

func (f *Future[T]) release() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.op.Close()
	})
	return f.closeErr
}

// claimLocked picks the callback matching the completed operation.
// A missing callback leaves the invocation for a later registration.
func (f *Future[T]) claimLocked() func() {
	if f.state != notInvoked || !f.op.Ready() {
		return nil
	}

	if f.op.ErrorCode() == driver.CodeOK {
		callback := f.onSuccess
		if callback == nil {
			return nil
		}
		f.state = invoking
		f.invoker = goroutineID()
		return func() {
			f.runSuccess(callback)
		}
	}

	callback := f.onFailure
	if callback == nil {
		return nil
	}
	f.state = invoking
	f.invoker = goroutineID()
	err := newExecutionError(f.kind, f.op)
	return func() {
		callback(err)
	}
}

func (f *Future[T]) invoke(run func()) {
	defer func() {
		f.mu.Lock()
		f.state = invoked
		f.invoker = 0
		release := f.closeRequested
		f.mu.Unlock()
		f.signal()
		if release {
			_ = f.release()
		}
	}()
	run()
}

func (f *Future[T]) runSuccess(callback *successCallback[T]) {
	if callback.plain != nil {
		callback.plain()
		return
	}

	value, err := f.value()
	if err != nil {
		f.mu.Lock()
		failure := f.onFailure
		f.mu.Unlock()
		if failure != nil {
			failure(err)
			return
		}
		ctx := log.ToContext(context.Background(), log.String("future", f.id), log.String("kind", f.kind.String()))
		f.logger.Error(ctx, errors.WithMessage(err, "success callback is skipped"))
		return
	}
	callback.withPayload(value)
}

func (f *Future[T]) value() (T, error) {
	f.payloadOnce.Do(func() {
		raw, err := f.op.Payload()
		if err != nil {
			f.payloadErr = errors.WithMessagef(err, "take %s payload", f.kind)
			return
		}
		f.payload, f.payloadErr = f.build(raw)
	})
	return f.payload, f.payloadErr
}

// settle signals completion unless a callback is running or a worker still owns the future.
func (f *Future[T]) settle() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == invoking {
		return
	}
	if f.enqueued && !f.processed {
		return
	}
	f.signal()
}

func (f *Future[T]) signal() {
	f.doneOnce.Do(func() {
		close(f.done)
	})
}

// goroutineID reads the id of the calling goroutine from its stack header, 0 when it cannot be read.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = bytes.TrimPrefix(buf[:runtime.Stack(buf, false)], []byte("goroutine "))
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

package driver

import (
	"sync"
	"sync/atomic"
)

// Op is an Operation completed exactly once by the driver that created it.
type Op struct {
	done     chan struct{}
	once     sync.Once
	code     ErrorCode
	message  string
	mu       sync.Mutex
	payload  any
	consumed bool
	closed   atomic.Bool
	onClose  func(unconsumed any)
}

func NewOp() *Op {
	return &Op{
		done: make(chan struct{}),
	}
}

// CompletedOp returns an already completed operation.
func CompletedOp(code ErrorCode, message string, payload any) *Op {
	op := NewOp()
	op.Complete(code, message, payload)
	return op
}

// OnClose sets a hook run once by Close. It receives the payload if nobody took it.
func (o *Op) OnClose(f func(unconsumed any)) *Op {
	o.onClose = f
	return o
}

// Complete makes the operation ready. Only the first call has effect.
func (o *Op) Complete(code ErrorCode, message string, payload any) bool {
	completed := false
	o.once.Do(func() {
		o.code = code
		o.message = message
		if code == CodeOK {
			o.payload = payload
		}
		completed = true
		close(o.done)
	})
	return completed
}

func (o *Op) Done() <-chan struct{} {
	return o.done
}

func (o *Op) Ready() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

func (o *Op) Wait() {
	<-o.done
}

func (o *Op) ErrorCode() ErrorCode {
	if !o.Ready() {
		return CodeOK
	}
	return o.code
}

func (o *Op) ErrorMessage() string {
	if !o.Ready() {
		return ""
	}
	return o.message
}

func (o *Op) Payload() (any, error) {
	if !o.Ready() {
		return nil, ErrNotReady
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.consumed {
		return nil, ErrConsumed
	}
	o.consumed = true
	payload := o.payload
	o.payload = nil
	return payload, nil
}

func (o *Op) Close() error {
	if o.closed.Swap(true) {
		return nil
	}

	o.mu.Lock()
	unconsumed := o.payload
	o.payload = nil
	o.consumed = true
	o.mu.Unlock()

	if o.onClose != nil {
		o.onClose(unconsumed)
	}
	return nil
}

func (o *Op) Closed() bool {
	return o.closed.Load()
}

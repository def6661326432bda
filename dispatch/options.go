package dispatch

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

type options struct {
	workers   int
	queueSize int
}

func newOptions() *options {
	return &options{
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
	}
}

type Option func(o *options)

func Workers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// QueueSize bounds the number of tasks waiting for a worker.
// Submit blocks while the queue is full.
func QueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

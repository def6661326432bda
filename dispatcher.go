package cqlx

import (
	"github.com/txix-open/cqlx/dispatch"
	"github.com/txix-open/cqlx/metric"
	"github.com/txix-open/isp-kit/app"
	"github.com/txix-open/isp-kit/log"
)

type dispatcherOptions struct {
	prepareWorkers int
	executeWorkers int
	queueSize      int
}

type DispatcherOption func(o *dispatcherOptions)

func PrepareWorkers(n int) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.prepareWorkers = n
	}
}

func ExecuteWorkers(n int) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.executeWorkers = n
	}
}

// DispatchQueueSize bounds each pool queue. Callback registration blocks while it is full.
func DispatchQueueSize(n int) DispatcherOption {
	return func(o *dispatcherOptions) {
		o.queueSize = n
	}
}

// Dispatcher holds one dispatch pool per operation kind,
// so slow execute callbacks never hold back prepare callbacks.
type Dispatcher struct {
	prepare *dispatch.Pool
	execute *dispatch.Pool
}

func NewDispatcher(logger log.Logger, opts ...DispatcherOption) *Dispatcher {
	options := &dispatcherOptions{
		prepareWorkers: dispatch.DefaultWorkers,
		executeWorkers: dispatch.DefaultWorkers,
		queueSize:      dispatch.DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Dispatcher{
		prepare: dispatch.New(
			KindPrepare.String(),
			logger,
			dispatch.Workers(options.prepareWorkers),
			dispatch.QueueSize(options.queueSize),
		),
		execute: dispatch.New(
			KindExecute.String(),
			logger,
			dispatch.Workers(options.executeWorkers),
			dispatch.QueueSize(options.queueSize),
		),
	}
}

func (d *Dispatcher) Pool(kind Kind) *dispatch.Pool {
	if kind == KindPrepare {
		return d.prepare
	}
	return d.execute
}

func (d *Dispatcher) QueueDepthMetric() metric.Metric {
	return metric.Metric{
		Name:        "cqlx_dispatch_queue_depth",
		Description: "Number of futures waiting for a dispatch worker",
		Labels:      []string{"pool"},
		Collect: func() []metric.Value {
			return []metric.Value{
				metric.ValueOf(d.prepare.QueueDepth(), d.prepare.Name()),
				metric.ValueOf(d.execute.QueueDepth(), d.execute.Name()),
			}
		},
	}
}

// Close drains both pools. Pending callbacks still run.
func (d *Dispatcher) Close() error {
	closers := []app.Closer{
		d.prepare,
		d.execute,
	}
	for _, closer := range closers {
		err := closer.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

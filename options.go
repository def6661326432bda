package cqlx

import (
	"time"

	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/isp-kit/log"
)

const (
	ProtocolVersionV1    = 0x01
	ProtocolVersionV2    = 0x02
	ProtocolVersionV3    = 0x03
	ProtocolVersionV4    = 0x04
	ProtocolVersionV5    = 0x05
	ProtocolVersionDSEV1 = 0x41
	ProtocolVersionDSEV2 = 0x42
)

const (
	DefaultPort            = 9042
	DefaultProtocolVersion = ProtocolVersionV4
	DefaultConnectTimeout  = 5000 * time.Millisecond
	DefaultRequestTimeout  = 12000 * time.Millisecond
	DefaultResolveTimeout  = 2000 * time.Millisecond
)

// HookData describes a completed synchronous operation.
type HookData struct {
	Kind     Kind
	Code     driver.ErrorCode
	Duration time.Duration
}

type Hook func(data HookData)

type options struct {
	hosts                    []string
	port                     int
	keyspace                 string
	protocolVersion          int
	connectTimeout           time.Duration
	requestTimeout           time.Duration
	resolveTimeout           time.Duration
	speculativeDelay         time.Duration
	maxSpeculativeExecutions int
	dispatcher               *Dispatcher
	dispatcherOptions        []DispatcherOption
	logger                   log.Logger
	hook                     Hook
}

func newOptions() *options {
	return &options{
		port:            DefaultPort,
		protocolVersion: DefaultProtocolVersion,
		connectTimeout:  DefaultConnectTimeout,
		requestTimeout:  DefaultRequestTimeout,
		resolveTimeout:  DefaultResolveTimeout,
		hook:            func(HookData) {},
	}
}

type Option func(o *options)

// Hosts sets the contact points. Several hosts are shuffled on connect.
func Hosts(hosts ...string) Option {
	return func(o *options) {
		o.hosts = append([]string{}, hosts...)
	}
}

func Port(port int) Option {
	return func(o *options) {
		o.port = port
	}
}

func Keyspace(keyspace string) Option {
	return func(o *options) {
		o.keyspace = keyspace
	}
}

func ProtocolVersion(version int) Option {
	return func(o *options) {
		o.protocolVersion = version
	}
}

func ConnectTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.connectTimeout = timeout
	}
}

// RequestTimeout is enforced by the driver. An expired request fails with a timeout code.
func RequestTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = timeout
	}
}

func ResolveTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.resolveTimeout = timeout
	}
}

func ConstantSpeculativeExecution(delay time.Duration, maxExecutions int) Option {
	return func(o *options) {
		o.speculativeDelay = delay
		o.maxSpeculativeExecutions = maxExecutions
	}
}

// WithDispatcher shares a dispatcher between sessions. The session never closes it.
func WithDispatcher(dispatcher *Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = dispatcher
	}
}

// WithDispatcherOptions configures the dispatcher a session creates for itself.
func WithDispatcherOptions(opts ...DispatcherOption) Option {
	return func(o *options) {
		o.dispatcherOptions = append(o.dispatcherOptions, opts...)
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithHook(hook Hook) Option {
	return func(o *options) {
		if hook != nil {
			o.hook = hook
		}
	}
}

package sqlite

import (
	"time"
)

const (
	DefaultMaxInFlight  = 256
	DefaultMaxOpenConns = 1
	DefaultBusyTimeout  = 5 * time.Second
)

type options struct {
	maxInFlight  int
	maxOpenConns int
	busyTimeout  time.Duration
}

func newOptions() *options {
	return &options{
		maxInFlight:  DefaultMaxInFlight,
		maxOpenConns: DefaultMaxOpenConns,
		busyTimeout:  DefaultBusyTimeout,
	}
}

type Option func(o *options)

// MaxInFlight bounds requests executed at once. Requests over the bound fail as unavailable.
func MaxInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

func MaxOpenConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenConns = n
		}
	}
}

func BusyTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.busyTimeout = timeout
	}
}

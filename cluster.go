package cqlx

import (
	"context"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/isp-kit/log"
	"github.com/txix-open/isp-kit/metrics"
)

type Cluster struct {
	driver  driver.Driver
	options options
}

func NewCluster(drv driver.Driver, opts ...Option) *Cluster {
	options := newOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Cluster{
		driver:  drv,
		options: *options,
	}
}

// Connect fails with *ConnectError when no contact point accepts the connection.
// Connection failures are never retried here.
func (c *Cluster) Connect(ctx context.Context) (*Session, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}

	logger := c.options.logger
	if logger == nil {
		logger, err = log.New()
		if err != nil {
			return nil, errors.WithMessage(err, "new logger")
		}
	}

	ctx = log.ToContext(ctx, log.Any("hosts", cfg.Hosts), log.String("keyspace", cfg.Keyspace))
	logger.Debug(ctx, "connecting")
	conn, err := c.driver.Connect(ctx, cfg)
	if err != nil {
		return nil, toConnectError(err)
	}
	logger.Info(ctx, "connected")

	dispatcher := c.options.dispatcher
	ownDispatcher := dispatcher == nil
	if ownDispatcher {
		dispatcher = NewDispatcher(logger, c.options.dispatcherOptions...)
	}
	return &Session{
		conn:          conn,
		dispatcher:    dispatcher,
		ownDispatcher: ownDispatcher,
		logger:        logger,
		hook:          c.options.hook,
	}, nil
}

func (c *Cluster) config() (driver.Config, error) {
	o := c.options
	if len(o.hosts) == 0 {
		return driver.Config{}, ErrNoHosts
	}
	if o.port <= 0 || o.port > 65535 {
		return driver.Config{}, errors.WithMessagef(ErrInvalidArgument, "port %d", o.port)
	}
	if !validProtocolVersion(o.protocolVersion) {
		return driver.Config{}, errors.WithMessagef(ErrInvalidArgument, "protocol version %#x", o.protocolVersion)
	}
	if o.connectTimeout < 0 || o.requestTimeout < 0 || o.resolveTimeout < 0 {
		return driver.Config{}, errors.WithMessage(ErrInvalidArgument, "negative timeout")
	}
	if o.speculativeDelay < 0 || o.maxSpeculativeExecutions < 0 {
		return driver.Config{}, errors.WithMessage(ErrInvalidArgument, "negative speculative execution policy")
	}

	hosts := slices.Clone(o.hosts)
	if len(hosts) > 1 {
		rand.Shuffle(len(hosts), func(i, j int) {
			hosts[i], hosts[j] = hosts[j], hosts[i]
		})
	}
	return driver.Config{
		Hosts:                    hosts,
		Port:                     o.port,
		Keyspace:                 o.keyspace,
		ProtocolVersion:          o.protocolVersion,
		ConnectTimeout:           o.connectTimeout,
		RequestTimeout:           o.requestTimeout,
		ResolveTimeout:           o.resolveTimeout,
		SpeculativeDelay:         o.speculativeDelay,
		MaxSpeculativeExecutions: o.maxSpeculativeExecutions,
	}, nil
}

func validProtocolVersion(version int) bool {
	switch version {
	case ProtocolVersionV1, ProtocolVersionV2, ProtocolVersionV3, ProtocolVersionV4, ProtocolVersionV5,
		ProtocolVersionDSEV1, ProtocolVersionDSEV2:
		return true
	default:
		return false
	}
}

func toConnectError(err error) *ConnectError {
	var driverErr *driver.ConnectError
	if errors.As(err, &driverErr) {
		return &ConnectError{
			Code:    driverErr.Code,
			Message: driverErr.Message,
		}
	}
	return &ConnectError{
		Code:    driver.CodeConnect,
		Message: err.Error(),
	}
}

// MetricsHook records synchronous request durations per kind and failures per error code.
func MetricsHook() Hook {
	duration := metrics.GetOrRegister(
		metrics.DefaultRegistry,
		prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       "cqlx_request_duration_ms",
			Help:       "Time to complete a synchronous request in milliseconds",
			Objectives: metrics.DefaultObjectives,
		}, []string{"kind"}),
	)
	failures := metrics.GetOrRegister(
		metrics.DefaultRegistry,
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cqlx_request_failures_total",
			Help: "Number of failed synchronous requests",
		}, []string{"kind", "code"}),
	)
	return func(data HookData) {
		duration.WithLabelValues(data.Kind.String()).Observe(float64(data.Duration.Milliseconds()))
		if data.Code != driver.CodeOK {
			failures.WithLabelValues(data.Kind.String(), data.Code.String()).Inc()
		}
	}
}

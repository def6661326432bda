// Package sqlite implements the native driver contract on top of an embedded
// SQLite database. Hosts are database file paths tried in turn.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/txix-open/cqlx/driver"
	"github.com/txix-open/isp-kit/log"
	_ "modernc.org/sqlite"
)

const (
	minCloseTimeout = 3 * time.Second
)

type Driver struct {
	logger  log.Logger
	options options
}

func New(logger log.Logger, opts ...Option) *Driver {
	options := newOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Driver{
		logger:  logger,
		options: *options,
	}
}

// Connect opens the first host that answers a ping within the connect timeout.
// Keyspace, port and protocol settings have no SQLite counterpart and are ignored.
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Conn, error) {
	failures := make([]string, 0, len(cfg.Hosts))
	for _, host := range cfg.Hosts {
		hostCtx := log.ToContext(ctx, log.String("host", host))
		db, err := d.open(hostCtx, host, cfg)
		if err != nil {
			d.logger.Warn(hostCtx, errors.WithMessage(err, "open sqlite database"))
			failures = append(failures, fmt.Sprintf("%s: %v", host, err))
			continue
		}

		pool, err := ants.NewPool(
			d.options.maxInFlight,
			ants.WithNonblocking(true),
			ants.WithPanicHandler(func(v any) {
				d.logger.Error(hostCtx, "sqlite request panicked", log.Any("panic", v))
			}),
		)
		if err != nil {
			_ = db.Close()
			return nil, errors.WithMessage(err, "new request pool")
		}

		d.logger.Debug(hostCtx, "sqlite database opened")
		return &Conn{
			db:             db,
			pool:           pool,
			requestTimeout: cfg.RequestTimeout,
			closeTimeout:   max(cfg.RequestTimeout, cfg.ConnectTimeout, minCloseTimeout),
			logger:         d.logger,
			host:           host,
		}, nil
	}

	return nil, &driver.ConnectError{
		Code:    driver.CodeConnect,
		Message: strings.Join(failures, "; "),
	}
}

func (d *Driver) open(ctx context.Context, host string, cfg driver.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", d.dsn(host))
	if err != nil {
		return nil, errors.WithMessage(err, "sql open")
	}
	db.SetMaxOpenConns(d.options.maxOpenConns)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, errors.WithMessage(err, "ping")
	}
	return db, nil
}

func (d *Driver) dsn(host string) string {
	separator := "?"
	if strings.Contains(host, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", host, separator, d.options.busyTimeout.Milliseconds())
}

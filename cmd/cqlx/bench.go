package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/cqlx/metric"
	"github.com/txix-open/isp-kit/log"
	"golang.org/x/sync/errgroup"
)

const (
	benchSchema = `CREATE TABLE IF NOT EXISTS bench (
		id BIGINT PRIMARY KEY,
		message TEXT,
		created_at TIMESTAMP
	)`
	benchInsert = "INSERT INTO bench (id, message, created_at) VALUES (?, ?, ?)"
)

type benchOptions struct {
	*rootOptions
	rows           int
	inFlight       int
	executeWorkers int
}

func newBenchCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &benchOptions{rootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare synchronous and asynchronous inserts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.rows, "rows", 10000, "rows inserted by each mode")
	cmd.Flags().IntVar(&opts.inFlight, "in-flight", 100, "async futures awaited together")
	cmd.Flags().IntVar(&opts.executeWorkers, "execute-workers", 0, "execute dispatch workers, 0 keeps the configured value")
	return cmd
}

func runBench(ctx context.Context, opts *benchOptions) error {
	if opts.rows <= 0 || opts.inFlight <= 0 {
		return errors.New("rows and in-flight must be positive")
	}
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	extra := make([]cqlx.Option, 0)
	if opts.executeWorkers > 0 {
		extra = append(extra, cqlx.WithDispatcherOptions(cqlx.ExecuteWorkers(opts.executeWorkers)))
	}
	session, err := opts.connect(ctx, logger, extra...)
	if err != nil {
		return err
	}
	defer func() {
		_ = session.Close()
	}()

	collector := metric.NewCollector(metric.EverySecond, "bench")
	defer func() {
		_ = collector.Close()
	}()
	err = collector.Add(session.Dispatcher().QueueDepthMetric())
	if err != nil {
		return err
	}

	for _, query := range []string{benchSchema, "DELETE FROM bench"} {
		statement, err := session.Prepare(query)
		if err != nil {
			return errors.WithMessage(err, "prepare bench table")
		}
		_, err = session.Execute(statement)
		_ = statement.Close()
		if err != nil {
			return errors.WithMessage(err, "prepare bench table")
		}
	}

	insert, err := session.Prepare(benchInsert)
	if err != nil {
		return errors.WithMessage(err, "prepare insert")
	}
	defer func() {
		_ = insert.Close()
	}()

	syncTime, err := benchSync(session, insert, opts.rows)
	if err != nil {
		return err
	}
	asyncTime, err := benchAsync(session, insert, opts.rows, opts.inFlight)
	if err != nil {
		return err
	}

	logger.Info(
		ctx,
		"bench finished",
		log.Any("rows", opts.rows),
		log.String("sync", syncTime.String()),
		log.String("async", asyncTime.String()),
		log.String("syncRate", rate(opts.rows, syncTime)),
		log.String("asyncRate", rate(opts.rows, asyncTime)),
	)
	return nil
}

func benchSync(session *cqlx.Session, insert *cqlx.Statement, rows int) (time.Duration, error) {
	start := time.Now()
	for i := 0; i < rows; i++ {
		err := bindRow(insert, int64(i))
		if err != nil {
			return 0, err
		}
		_, err = session.Execute(insert)
		if err != nil {
			return 0, errors.WithMessagef(err, "insert %d", i)
		}
	}
	return time.Since(start), nil
}

func benchAsync(session *cqlx.Session, insert *cqlx.Statement, rows int, inFlight int) (time.Duration, error) {
	inserted := &atomic.Int64{}
	start := time.Now()
	futures := make([]*cqlx.Future[*cqlx.Result], 0, inFlight)
	await := func() error {
		group := errgroup.Group{}
		for _, future := range futures {
			group.Go(func() error {
				defer func() {
					_ = future.Close()
				}()
				return future.Err()
			})
		}
		futures = futures[:0]
		return group.Wait()
	}

	for i := 0; i < rows; i++ {
		err := bindRow(insert, int64(rows+i))
		if err != nil {
			return 0, err
		}
		future, err := session.ExecuteAsync(insert)
		if err != nil {
			return 0, errors.WithMessagef(err, "submit insert %d", i)
		}
		err = future.OnSuccessFunc(func() {
			inserted.Add(1)
		})
		if err != nil {
			return 0, err
		}
		futures = append(futures, future)

		if len(futures) == inFlight {
			err := await()
			if err != nil {
				return 0, errors.WithMessage(err, "async insert")
			}
		}
	}
	err := await()
	if err != nil {
		return 0, errors.WithMessage(err, "async insert")
	}

	if int(inserted.Load()) != rows {
		return 0, errors.Errorf("inserted %d of %d rows", inserted.Load(), rows)
	}
	return time.Since(start), nil
}

func bindRow(insert *cqlx.Statement, id int64) error {
	return insert.Bind(map[string]any{
		"id":         id,
		"message":    fmt.Sprintf("message %d", id),
		"created_at": time.Now(),
	})
}

func rate(rows int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.0f rows/s", float64(rows)/elapsed.Seconds())
}

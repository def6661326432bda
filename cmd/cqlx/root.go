package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/txix-open/cqlx"
	"github.com/txix-open/cqlx/driver/sqlite"
	"github.com/txix-open/isp-kit/log"
)

type rootOptions struct {
	hosts     []string
	envPrefix string
	verbose   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "cqlx",
		Short: "Run statements through cqlx sessions",
		Long: `Run statements through cqlx sessions backed by SQLite databases.

Cluster settings are read from CQLX_* environment variables and .env,
--db overrides the hosts.

Example:
  cqlx exec --db ./cqlx.db "SELECT * FROM test WHERE id = ?" --bind '{"id": 1}'
  cqlx bench --db ./bench.db --rows 10000`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.hosts, "db", nil, "sqlite database path, repeat to add fallbacks")
	cmd.PersistentFlags().StringVar(&opts.envPrefix, "env-prefix", cqlx.DefaultEnvPrefix, "prefix of configuration environment variables")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(newExecCommand(opts), newBenchCommand(opts))
	return cmd
}

func (o *rootOptions) logger() (log.Logger, error) {
	level := log.InfoLevel
	if o.verbose {
		level = log.DebugLevel
	}
	logger, err := log.New(log.WithLevel(level))
	if err != nil {
		return nil, errors.WithMessage(err, "new logger")
	}
	return logger, nil
}

func (o *rootOptions) connect(ctx context.Context, logger log.Logger, extra ...cqlx.Option) (*cqlx.Session, error) {
	cfg, err := cqlx.LoadConfig(o.envPrefix)
	if err != nil {
		return nil, err
	}
	if len(o.hosts) > 0 {
		cfg.Hosts = o.hosts
	}

	opts := append(cfg.Options(), cqlx.WithLogger(logger), cqlx.WithHook(cqlx.MetricsHook()))
	opts = append(opts, extra...)
	session, err := cqlx.NewCluster(sqlite.New(logger), opts...).Connect(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "connect")
	}
	return session, nil
}

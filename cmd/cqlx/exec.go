package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/txix-open/cqlx/enc"
)

type execOptions struct {
	*rootOptions
	bind     string
	pageSize int
	allPages bool
}

func newExecCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &execOptions{rootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "exec <query>",
		Short: "Prepare and execute a statement, print rows as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.bind, "bind", "", `values as a JSON object, e.g. '{"id": 1}'`)
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "rows per page, 0 disables paging")
	cmd.Flags().BoolVar(&opts.allPages, "all-pages", true, "follow every page")
	return cmd
}

func runExec(cmd *cobra.Command, opts *execOptions, query string) error {
	logger, err := opts.logger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	session, err := opts.connect(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = session.Close()
	}()

	statement, err := session.Prepare(query)
	if err != nil {
		return errors.WithMessage(err, "prepare")
	}
	defer func() {
		_ = statement.Close()
	}()

	values, err := bindValues(opts.bind, statement.Params())
	if err != nil {
		return err
	}
	err = statement.Bind(values)
	if err != nil {
		return err
	}
	err = statement.SetPageSize(opts.pageSize)
	if err != nil {
		return err
	}

	result, err := session.Execute(statement)
	if err != nil {
		return errors.WithMessage(err, "execute")
	}

	buf := enc.AcquireBuffer()
	defer enc.ReleaseBuffer(buf)
	for result != nil {
		buf.Reset()
		for row := range result.Each() {
			err := enc.EncodeInto(buf, row)
			if err != nil {
				return errors.WithMessage(err, "encode row")
			}
		}
		_, err = buf.WriteTo(os.Stdout)
		if err != nil {
			return errors.WithMessage(err, "write rows")
		}
		if !opts.allPages {
			return nil
		}
		result, err = result.NextPage()
		if err != nil {
			return err
		}
	}
	return nil
}

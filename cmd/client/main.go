// Package main implements the taskfan client. It builds a demonstration task
// of numbered requests, submits it to a coordinator and prints every result.
//
// Usage:
//
//	client --coordinator-host localhost --coordinator-port 19091 --requests 100
//	client status
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dreamware/taskfan/internal/bootstrap"
	"github.com/dreamware/taskfan/internal/client"
	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// options are the client-specific flags. Zero values keep the configured
// value.
type options struct {
	coordinatorName string
	coordinatorHost string
	taskName        string
	coordinatorPort int
	requests        int
}

func newRootCmd() *cobra.Command {
	var (
		flags bootstrap.Flags
		opts  options
	)
	cmd := &cobra.Command{
		Use:          "client",
		Short:        "Submit a demonstration task to a taskfan coordinator",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(&flags, opts)
			if err != nil {
				return err
			}
			return submit(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	flags.Register(cmd, false)

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.coordinatorName, "coordinator-name", "", "service name the coordinator is bound under")
	fs.StringVar(&opts.coordinatorHost, "coordinator-host", "", "coordinator host")
	fs.IntVar(&opts.coordinatorPort, "coordinator-port", 0, "coordinator port")
	cmd.Flags().IntVar(&opts.requests, "requests", 0, "number of requests in the task")
	cmd.Flags().StringVar(&opts.taskName, "task-name", "", "name of the task")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the coordinator's workers and their health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(&flags, opts)
			if err != nil {
				return err
			}
			return status(cmd.Context(), cfg.Coordinator.Endpoint, cmd.OutOrStdout())
		},
	})
	return cmd
}

// load layers the client flags over the shared configuration.
func load(flags *bootstrap.Flags, opts options) (config.Config, error) {
	cfg, err := flags.Load()
	if err != nil {
		return cfg, err
	}
	if opts.coordinatorName != "" {
		cfg.Coordinator.ServiceName = opts.coordinatorName
	}
	if opts.coordinatorHost != "" {
		cfg.Coordinator.Host = opts.coordinatorHost
	}
	if opts.coordinatorPort != 0 {
		cfg.Coordinator.Port = opts.coordinatorPort
	}
	if opts.requests != 0 {
		cfg.Client.Requests = opts.requests
	}
	if opts.taskName != "" {
		cfg.Client.TaskName = opts.taskName
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Coordinator.Endpoint.Validate()
}

func submit(ctx context.Context, cfg config.Config, out io.Writer) error {
	log, err := bootstrap.NewLogger(cfg, "client")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	rpcOpts, err := bootstrap.ClientOptions(cfg, log)
	if err != nil {
		return err
	}
	t, err := client.BuildTask(cfg.Client.TaskName, cfg.Client.Requests)
	if err != nil {
		return err
	}

	c := client.New(cluster.NewCoordinatorClient(cfg.Coordinator.Endpoint, rpcOpts), out, log)
	_, err = c.Send(ctx, t)
	return err
}

func status(ctx context.Context, coord cluster.Endpoint, out io.Writer) error {
	var roster cluster.RosterResponse
	if err := cluster.GetJSON(ctx, coord.BaseURL()+"/roster", &roster); err != nil {
		return fmt.Errorf("query %s: %w", coord, err)
	}
	fmt.Fprintf(out, "coordinator %s, %d workers\n", roster.Coordinator, len(roster.Workers))
	for _, w := range roster.Workers {
		fmt.Fprintf(out, "  [%d] %-30s %-9s fails=%d\n", w.Index, w.Endpoint, w.Status, w.ConsecutiveFails)
	}
	return nil
}

// Package main implements the taskfan coordinator. It accepts tasks from
// clients, splits them across the configured workers and returns the merged
// result.
//
// Usage:
//
//	coordinator Master localhost 19091 --config taskfan.yaml
//
// Workers come from the "workers" list of the config file (by default Slave1
// on 19092 and Slave2 on 19093). Every worker must answer /health at startup.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/bootstrap"
	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/coordinator"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags bootstrap.Flags
	cmd := &cobra.Command{
		Use:          "coordinator <serviceName> <hostName> <port>",
		Short:        "Run a taskfan coordinator",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, &flags, args, nil)
		},
	}
	flags.Register(cmd, true)
	return cmd
}

// errNoWorkers is returned when the configuration lists no workers.
var errNoWorkers = errors.New("no valid worker service found")

// run starts the coordinator and blocks until ctx ends.
func run(ctx context.Context, flags *bootstrap.Flags, args []string, ready func(net.Addr)) error {
	ep, err := bootstrap.ParseEndpoint(args)
	if err != nil {
		return err
	}
	cfg, err := flags.Load()
	if err != nil {
		return err
	}
	cfg.Coordinator.Endpoint = ep
	if flags.PoolSize != 0 {
		cfg.Coordinator.PoolSize = flags.PoolSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := bootstrap.NewLogger(cfg, "coordinator")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := bootstrap.EnsureWorkDir(cfg.Coordinator.WorkingDirectory()); err != nil {
		return err
	}

	if len(cfg.Workers) == 0 {
		log.Error("refusing to start", zap.Error(errNoWorkers))
		return errNoWorkers
	}
	opts, err := bootstrap.ClientOptions(cfg, log.Named("rpc"))
	if err != nil {
		return err
	}
	roster, err := coordinator.NewRemoteRoster(cfg.Workers, opts)
	if err != nil {
		return err
	}

	monitor := coordinator.NewHealthMonitor(roster.Endpoints(), cfg.Health.Interval, log.Named("health"))
	monitor.SetOnUnhealthy(func(w cluster.Endpoint) {
		log.Warn("worker unhealthy, submits routed to it will fail until it recovers",
			zap.Stringer("worker", w))
	})
	if err := monitor.WaitReady(ctx, cfg.Health.StartupRetries, cfg.Health.StartupDelay); err != nil {
		log.Error("workers not reachable", zap.Error(err))
		return err
	}
	go monitor.Start(ctx)
	defer monitor.Stop()

	svc, err := coordinator.New(coordinator.Options{
		Roster:   roster,
		Health:   monitor,
		PoolSize: cfg.Coordinator.PoolSize,
		Logger:   log,
		Name:     ep.ServiceName,
	})
	if err != nil {
		return err
	}

	log.Info("coordinator bound",
		zap.Stringer("endpoint", ep),
		zap.Int("workers", roster.Len()),
		zap.Int("pool_size", cfg.Coordinator.PoolSize),
		zap.String("work_dir", cfg.Coordinator.WorkingDirectory()))

	srv := &server{self: ep, coordinator: svc, monitor: monitor, logger: log}
	return bootstrap.Serve(ctx, ep, srv.routes(), log, ready)
}

type server struct {
	coordinator cluster.Coordinator
	monitor     *coordinator.HealthMonitor
	logger      *zap.Logger
	self        cluster.Endpoint
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", bootstrap.HealthHandler)
	mux.HandleFunc("/roster", s.handleRoster)
	cluster.BindCoordinator(mux, s.self.ServiceName, s.coordinator, s.logger)
	return mux
}

// handleRoster reports the workers in dispatch order with their last known
// health.
func (s *server) handleRoster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(cluster.RosterResponse{
		Coordinator: s.self,
		Workers:     s.monitor.Statuses(),
	})
}

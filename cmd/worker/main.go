// Package main implements the taskfan worker, which executes the requests of
// the sub-tasks a coordinator sends it.
//
// Architecture:
//
//	┌──────────────────────────────────────────┐
//	│                 Worker                    │
//	├──────────────────────────────────────────┤
//	│  HTTP API:                               │
//	│    POST /rpc/<name>/execute  - Execute   │
//	│    GET  /health              - liveness  │
//	│    GET  /info                - pool view │
//	├──────────────────────────────────────────┤
//	│  worker.Service + ants pool              │
//	└──────────────────────────────────────────┘
//
// Usage:
//
//	worker Slave1 localhost 19092 --pool-size 50
//
// Configuration comes from --config (YAML), then TASKFAN_* environment
// variables, then flags.
package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/bootstrap"
	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/worker"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags bootstrap.Flags
	cmd := &cobra.Command{
		Use:          "worker <serviceName> <hostName> <port>",
		Short:        "Run a taskfan worker",
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

// run starts the worker and blocks until ctx ends.
func run(ctx context.Context, flags *bootstrap.Flags, args []string, ready func(net.Addr)) error {
	ep, err := bootstrap.ParseEndpoint(args)
	if err != nil {
		return err
	}
	cfg, err := flags.Load()
	if err != nil {
		return err
	}
	cfg.Worker.Endpoint = ep
	if flags.PoolSize != 0 {
		cfg.Worker.PoolSize = flags.PoolSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := bootstrap.NewLogger(cfg, "worker")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := bootstrap.EnsureWorkDir(cfg.Worker.WorkingDirectory()); err != nil {
		return err
	}

	svc, err := worker.New(worker.Options{
		ServiceName: ep.ServiceName,
		PoolSize:    cfg.Worker.PoolSize,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	log.Info("worker bound",
		zap.Stringer("endpoint", ep),
		zap.Int("pool_size", cfg.Worker.PoolSize),
		zap.String("work_dir", cfg.Worker.WorkingDirectory()))

	return bootstrap.Serve(ctx, ep, newMux(svc, cfg.Worker.PoolSize, log), log, ready)
}

// info is the body of GET /info.
type info struct {
	ServiceName string `json:"service_name"`
	PoolSize    int    `json:"pool_size"`
	Running     int    `json:"running"`
}

func newMux(svc *worker.Service, poolSize int, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", bootstrap.HealthHandler)
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info{
			ServiceName: svc.ServiceName(),
			PoolSize:    poolSize,
			Running:     svc.Running(),
		})
	})
	cluster.BindWorker(mux, svc.ServiceName(), svc, log)
	return mux
}

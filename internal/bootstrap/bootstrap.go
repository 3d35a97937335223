// Package bootstrap holds the process plumbing shared by the taskfan binaries:
// flag and config layering, logger construction, the working directory and
// serving HTTP until a shutdown signal.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/codec"
	"github.com/dreamware/taskfan/internal/config"
	"github.com/dreamware/taskfan/internal/logger"
)

// ShutdownTimeout bounds graceful shutdown of an HTTP server.
const ShutdownTimeout = 5 * time.Second

// Flags are the options common to every binary. Set flags win over the
// environment, which wins over the config file.
type Flags struct {
	ConfigPath string
	LogLevel   string
	Codec      string
	PoolSize   int
}

// Register adds the common flags to cmd. withPool adds --pool-size.
func (f *Flags) Register(cmd *cobra.Command, withPool bool) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&f.ConfigPath, "config", "", "path to a YAML config file")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.Codec, "codec", "", "wire codec: json or msgpack")
	if withPool {
		cmd.Flags().IntVar(&f.PoolSize, "pool-size", 0, "size of the execution pool")
	}
}

// Load reads the configuration and applies the flags that were set. The pool
// size flag is applied by the caller, which knows which pool it sizes.
func (f *Flags) Load() (config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.Codec != "" {
		cfg.Transport.Codec = f.Codec
	}
	return cfg, nil
}

// NewLogger builds the process logger, named after the component.
func NewLogger(cfg config.Config, component string) (*zap.Logger, error) {
	l, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l.Named(component), nil
}

// ParseEndpoint reads the positional <serviceName> <hostName> <port>.
func ParseEndpoint(args []string) (cluster.Endpoint, error) {
	if len(args) != 3 {
		return cluster.Endpoint{}, fmt.Errorf("expected <serviceName> <hostName> <port>, got %d arguments", len(args))
	}
	port, err := strconv.Atoi(args[2])
	if err != nil {
		return cluster.Endpoint{}, fmt.Errorf("port %q: %w", args[2], err)
	}
	ep := cluster.Endpoint{ServiceName: args[0], Host: args[1], Port: port}
	return ep, ep.Validate()
}

// ClientOptions returns RPC client options for cfg's transport section.
func ClientOptions(cfg config.Config, log *zap.Logger) (cluster.ClientOptions, error) {
	c, err := codec.Lookup(cfg.Transport.Codec)
	if err != nil {
		return cluster.ClientOptions{}, err
	}
	return cluster.ClientOptions{Codec: c, Timeout: cfg.Transport.Timeout, Logger: log}, nil
}

// EnsureWorkDir creates dir if it does not exist yet.
func EnsureWorkDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create working directory %s: %w", dir, err)
	}
	return nil
}

// HealthHandler answers GET /health with 200.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Serve listens on ep's port on all interfaces and serves handler until ctx
// ends, then shuts down gracefully. ready, if not nil, is called once the
// listener is open.
func Serve(ctx context.Context, ep cluster.Endpoint, handler http.Handler, log *zap.Logger, ready func(addr net.Addr)) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(ep.Port)))
	if err != nil {
		return fmt.Errorf("listen %s: %w", ep, err)
	}
	return ServeListener(ctx, ln, handler, log, ready)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, ln net.Listener, handler http.Handler, log *zap.Logger, ready func(addr net.Addr)) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info("listening", zap.Stringer("addr", ln.Addr()))
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown error", zap.Error(err))
		return err
	}
	log.Info("stopped")
	return nil
}

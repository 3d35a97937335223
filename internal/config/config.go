// Package config loads taskfan configuration from YAML with environment
// overrides. Command-line flags are applied on top by each binary.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/codec"
	"github.com/dreamware/taskfan/internal/logger"
)

// DefaultPoolSize is the size of the coordinator and worker pools.
const DefaultPoolSize = 50

// Config is the full configuration shared by all three binaries.
type Config struct {
	Log         logger.Config      `yaml:"log"`
	Transport   TransportConfig    `yaml:"transport"`
	Coordinator ServiceConfig      `yaml:"coordinator"`
	Worker      ServiceConfig      `yaml:"worker"`
	Client      ClientConfig       `yaml:"client"`
	Workers     []cluster.Endpoint `yaml:"workers"`
	Health      HealthConfig       `yaml:"health"`
}

// TransportConfig configures the RPC clients.
type TransportConfig struct {
	Codec string `yaml:"codec"` // json, msgpack
	// Timeout bounds one remote call; 0 waits indefinitely.
	Timeout time.Duration `yaml:"timeout"`
}

// ServiceConfig describes a server process.
type ServiceConfig struct {
	cluster.Endpoint `yaml:",inline"`
	WorkDir          string `yaml:"work_dir"`
	PoolSize         int    `yaml:"pool_size"`
}

// WorkingDirectory returns WorkDir, or "<serviceName>_WorkingDirectory" when unset.
func (s ServiceConfig) WorkingDirectory() string {
	if s.WorkDir != "" {
		return s.WorkDir
	}
	return s.ServiceName + "_WorkingDirectory"
}

// ClientConfig describes the synthetic task the client submits.
type ClientConfig struct {
	TaskName string `yaml:"task_name"`
	Requests int    `yaml:"requests"`
}

// HealthConfig configures the coordinator's worker health monitor.
type HealthConfig struct {
	Interval       time.Duration `yaml:"interval"`
	StartupRetries int           `yaml:"startup_retries"`
	StartupDelay   time.Duration `yaml:"startup_delay"`
}

// Default returns the configuration of the reference deployment: one
// coordinator on 19091 and two workers on 19092 and 19093.
func Default() Config {
	return Config{
		Log:       logger.DefaultConfig(),
		Transport: TransportConfig{Codec: "json"},
		Coordinator: ServiceConfig{
			Endpoint: cluster.Endpoint{ServiceName: "Master", Host: "127.0.0.1", Port: 19091},
			PoolSize: DefaultPoolSize,
		},
		Worker: ServiceConfig{
			Endpoint: cluster.Endpoint{ServiceName: "Slave1", Host: "127.0.0.1", Port: 19092},
			PoolSize: DefaultPoolSize,
		},
		Workers: []cluster.Endpoint{
			{ServiceName: "Slave1", Host: "127.0.0.1", Port: 19092},
			{ServiceName: "Slave2", Host: "127.0.0.1", Port: 19093},
		},
		Client: ClientConfig{TaskName: "Simulate a simple task", Requests: 100},
		Health: HealthConfig{
			Interval:       5 * time.Second,
			StartupRetries: 10,
			StartupDelay:   400 * time.Millisecond,
		},
	}
}

// Load reads path (if non-empty) over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides selected fields from TASKFAN_* variables.
func applyEnv(cfg *Config) error {
	cfg.Log.Level = getenv("TASKFAN_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("TASKFAN_LOG_FORMAT", cfg.Log.Format)
	cfg.Transport.Codec = getenv("TASKFAN_CODEC", cfg.Transport.Codec)

	if v := os.Getenv("TASKFAN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKFAN_TIMEOUT: %w", err)
		}
		cfg.Transport.Timeout = d
	}
	for name, dst := range map[string]*int{
		"TASKFAN_COORDINATOR_POOL_SIZE": &cfg.Coordinator.PoolSize,
		"TASKFAN_WORKER_POOL_SIZE":      &cfg.Worker.PoolSize,
		"TASKFAN_CLIENT_REQUESTS":       &cfg.Client.Requests,
	} {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate checks the fields every binary relies on.
func (c Config) Validate() error {
	if _, err := codec.Lookup(c.Transport.Codec); err != nil {
		return err
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("transport.timeout must not be negative")
	}
	if c.Coordinator.PoolSize < 1 {
		return fmt.Errorf("coordinator.pool_size must be at least 1, got %d", c.Coordinator.PoolSize)
	}
	if c.Worker.PoolSize < 1 {
		return fmt.Errorf("worker.pool_size must be at least 1, got %d", c.Worker.PoolSize)
	}
	for i, ep := range c.Workers {
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("workers[%d]: %w", i, err)
		}
	}
	if c.Health.Interval <= 0 {
		return fmt.Errorf("health.interval must be positive, got %s", c.Health.Interval)
	}
	if c.Client.Requests < 0 {
		return fmt.Errorf("client.requests must not be negative")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

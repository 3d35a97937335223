package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/codec"
)

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint([]string{"Slave1", "localhost", "19092"})
	require.NoError(t, err)
	assert.Equal(t, cluster.Endpoint{ServiceName: "Slave1", Host: "localhost", Port: 19092}, ep)

	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"Slave1", "localhost"}},
		{"bad port", []string{"Slave1", "localhost", "http"}},
		{"port out of range", []string{"Slave1", "localhost", "70000"}},
		{"empty name", []string{"", "localhost", "1"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEndpoint(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestFlagsLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\ntransport:\n  codec: json\n"), 0o600))

	var f Flags
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	f.Register(cmd, true)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--codec", "msgpack", "--pool-size", "9"}))

	cfg, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level, "file value kept when flag unset")
	assert.Equal(t, "msgpack", cfg.Transport.Codec, "flag wins over file")
	assert.Equal(t, 9, f.PoolSize)

	t.Setenv("TASKFAN_LOG_LEVEL", "error")
	cfg, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level, "env wins over file")

	f.LogLevel = "debug"
	cfg, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "flag wins over env")
}

func TestClientOptions(t *testing.T) {
	var f Flags
	cfg, err := f.Load()
	require.NoError(t, err)
	cfg.Transport.Codec = "msgpack"
	cfg.Transport.Timeout = time.Second

	opts, err := ClientOptions(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, codec.Msgpack, opts.Codec)
	assert.Equal(t, time.Second, opts.Timeout)

	cfg.Transport.Codec = "xml"
	_, err = ClientOptions(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestEnsureWorkDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Slave1_WorkingDirectory")
	require.NoError(t, EnsureWorkDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Existing directories are fine.
	assert.NoError(t, EnsureWorkDir(dir))
}

func TestServeListenerShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- ServeListener(ctx, ln, mux, zap.NewNop(), func(a net.Addr) { ready <- a })
	}()

	addr := <-ready
	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/task"
)

// fakeCoordinator serves Submit for "Master" and a fixed /roster.
func fakeCoordinator(t *testing.T) (host string, port int) {
	t.Helper()
	mux := http.NewServeMux()
	cluster.BindCoordinator(mux, "Master", cluster.CoordinatorFunc(func(_ context.Context, in *task.Task) (*task.Task, error) {
		b := task.NewBuilder()
		if err := b.SetName("[Merged]" + in.Name() + "0"); err != nil {
			return nil, err
		}
		for _, r := range in.Requests() {
			if err := b.AddEntryWithResult(r, "R"); err != nil {
				return nil, err
			}
		}
		return b.Build()
	}), zap.NewNop())
	mux.HandleFunc("/roster", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(cluster.RosterResponse{
			Coordinator: cluster.Endpoint{ServiceName: "Master", Host: "127.0.0.1", Port: 19091},
			Workers: []cluster.MemberStatus{
				{Index: 0, Endpoint: cluster.Endpoint{ServiceName: "Slave1", Host: "127.0.0.1", Port: 19092}, Status: "healthy"},
				{Index: 1, Endpoint: cluster.Endpoint{ServiceName: "Slave2", Host: "127.0.0.1", Port: 19093}, Status: "unhealthy", ConsecutiveFails: 4},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err = strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append(args, "--log-level", "error"))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSubmit(t *testing.T) {
	host, port := fakeCoordinator(t)

	out, err := execute(t,
		"--coordinator-name", "Master",
		"--coordinator-host", host,
		"--coordinator-port", strconv.Itoa(port),
		"--requests", "3",
		"--task-name", "Demo")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"All the 3 sub tasks are finished...",
		"Request : task0, Result: R",
		"Request : task1, Result: R",
		"Request : task2, Result: R",
	}, lines)
}

func TestSubmitMsgpack(t *testing.T) {
	host, port := fakeCoordinator(t)

	out, err := execute(t, "--coordinator-host", host, "--coordinator-port", strconv.Itoa(port), "--codec", "msgpack")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "All the 100 sub tasks are finished...\n"))
	assert.Contains(t, out, "Request : task99, Result: R")
}

func TestSubmitWrongServiceName(t *testing.T) {
	host, port := fakeCoordinator(t)

	out, err := execute(t, "--coordinator-name", "Other", "--coordinator-host", host, "--coordinator-port", strconv.Itoa(port))
	require.Error(t, err)
	assert.ErrorIs(t, err, cluster.ErrNotBound)
	assert.Empty(t, out)
}

func TestStatus(t *testing.T) {
	host, port := fakeCoordinator(t)

	out, err := execute(t, "status", "--coordinator-host", host, "--coordinator-port", strconv.Itoa(port))
	require.NoError(t, err)
	assert.Contains(t, out, "coordinator Master@127.0.0.1:19091, 2 workers")
	assert.Contains(t, out, "Slave2@127.0.0.1:19093")
	assert.Contains(t, out, "fails=4")
}

func TestLoadRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "--coordinator-port", "70000")
	assert.Error(t, err)

	_, err = execute(t, "--requests", "-1")
	assert.Error(t, err)

	_, err = execute(t, "unexpected")
	assert.Error(t, err)
}

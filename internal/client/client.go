// Package client builds demonstration tasks, submits them to a coordinator and
// prints the merged result.
package client

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/task"
)

// Defaults used when the caller does not override them.
const (
	DefaultTaskName = "Simulate a simple task"
	DefaultRequests = 100
)

// Client submits tasks to a Coordinator and reports the results.
type Client struct {
	coordinator cluster.Coordinator
	out         io.Writer
	logger      *zap.Logger
}

// New returns a client for coordinator that prints to out (stdout when nil).
func New(coordinator cluster.Coordinator, out io.Writer, logger *zap.Logger) *Client {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{coordinator: coordinator, out: out, logger: logger}
}

// BuildTask returns a task called name with n requests task0 .. task<n-1>
// and no results.
func BuildTask(name string, n int) (*task.Task, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative request count %d", task.ErrInvalidArgument, n)
	}
	b := task.NewBuilder()
	if err := b.SetName(name); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := b.AddEntry(fmt.Sprintf("task%d", i)); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// Send submits t and, once every sub-task is done, prints a banner followed by
// one line per entry. Nothing is printed when the submit fails.
func (c *Client) Send(ctx context.Context, t *task.Task) (*task.Task, error) {
	if cluster.RequestID(ctx) == "" {
		ctx = cluster.WithRequestID(ctx, uuid.NewString())
	}
	c.logger.Info("submitting task",
		zap.String("task", t.Name()),
		zap.Int("size", t.Size()),
		zap.String("request_id", cluster.RequestID(ctx)))

	out, err := c.coordinator.Submit(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", t.Name(), err)
	}

	if err := c.print(out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Client) print(t *task.Task) error {
	if _, err := fmt.Fprintf(c.out, "All the %d sub tasks are finished...\n", t.Size()); err != nil {
		return err
	}
	for _, e := range t.Entries() {
		var res string
		if e.HasResult() {
			res = *e.Result
		}
		if _, err := fmt.Fprintf(c.out, "Request : %s, Result: %s\n", e.Request, res); err != nil {
			return err
		}
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/task"
)

func TestBuildTask(t *testing.T) {
	tk, err := BuildTask(DefaultTaskName, DefaultRequests)
	require.NoError(t, err)
	assert.Equal(t, DefaultTaskName, tk.Name())
	assert.Equal(t, 100, tk.Size())

	reqs := tk.Requests()
	assert.Equal(t, "task0", reqs[0])
	assert.Equal(t, "task99", reqs[99])
	for _, e := range tk.Entries() {
		assert.False(t, e.HasResult())
	}

	empty, err := BuildTask("T", 0)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	_, err = BuildTask("", 3)
	assert.ErrorIs(t, err, task.ErrInvalidArgument)
	_, err = BuildTask("T", -1)
	assert.ErrorIs(t, err, task.ErrInvalidArgument)
}

func TestSendPrintsResults(t *testing.T) {
	var gotID string
	coord := cluster.CoordinatorFunc(func(ctx context.Context, in *task.Task) (*task.Task, error) {
		gotID = cluster.RequestID(ctx)
		b := task.NewBuilder()
		require.NoError(t, b.SetName("[Merged]"+in.Name()+"0"))
		for i, r := range in.Requests() {
			if i == 2 {
				require.NoError(t, b.AddEntry(r))
				continue
			}
			require.NoError(t, b.AddEntryWithResult(r, "R"))
		}
		return b.Build()
	})

	var buf bytes.Buffer
	c := New(coord, &buf, nil)
	in, err := BuildTask("T", 3)
	require.NoError(t, err)

	out, err := c.Send(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "[Merged]T0", out.Name())
	assert.NotEmpty(t, gotID, "a request id is attached")

	// The entry without a result is last; its line keeps the trailing space.
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"All the 3 sub tasks are finished...",
		"Request : task0, Result: R",
		"Request : task1, Result: R",
		"Request : task2, Result: ",
	}, lines)
}

func TestSendKeepsRequestID(t *testing.T) {
	var gotID string
	coord := cluster.CoordinatorFunc(func(ctx context.Context, in *task.Task) (*task.Task, error) {
		gotID = cluster.RequestID(ctx)
		return in, nil
	})
	in, err := BuildTask("T", 1)
	require.NoError(t, err)

	_, err = New(coord, &bytes.Buffer{}, nil).Send(cluster.WithRequestID(context.Background(), "abc"), in)
	require.NoError(t, err)
	assert.Equal(t, "abc", gotID)
}

func TestSendFailurePrintsNothing(t *testing.T) {
	coord := cluster.CoordinatorFunc(func(context.Context, *task.Task) (*task.Task, error) {
		return nil, cluster.ErrDispatch
	})
	var buf bytes.Buffer
	in, err := BuildTask("T", 2)
	require.NoError(t, err)

	out, err := New(coord, &buf, nil).Send(context.Background(), in)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, cluster.ErrDispatch))
	assert.Empty(t, buf.String())
}

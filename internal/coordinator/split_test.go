package coordinator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/task"
)

func buildTask(t require.TestingT, name string, requests ...string) *task.Task {
	b := task.NewBuilder()
	require.NoError(t, b.SetName(name))
	for _, r := range requests {
		require.NoError(t, b.AddEntry(r))
	}
	out, err := b.Build()
	require.NoError(t, err)
	return out
}

func numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("task%d", i)
	}
	return out
}

func sizes(subTasks []*task.Task) []int {
	out := make([]int, len(subTasks))
	for i, s := range subTasks {
		out[i] = s.Size()
	}
	return out
}

func TestSplitSizes(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		workers int
		want    []int
	}{
		{"hundred over two", 100, 2, []int{51, 49}},
		{"three over three", 3, 3, []int{2, 1}},
		{"four over two", 4, 2, []int{3, 1}},
		{"one over five", 1, 5, []int{1}},
		{"exact multiple", 6, 2, []int{4, 2}},
		{"single worker", 7, 1, []int{7}},
		{"two over one", 2, 1, []int{2}},
		{"ten over four", 10, 4, []int{3, 3, 3, 1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			subs, err := Split(buildTask(t, "T", numbered(tt.total)...), tt.workers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sizes(subs))
		})
	}
}

func TestSplitNamesAndOrder(t *testing.T) {
	in := buildTask(t, "Job", "a", "b", "c", "d", "e")
	subs, err := Split(in, 2)
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "Job0", subs[0].Name())
	assert.Equal(t, "Job1", subs[1].Name())
	assert.Equal(t, []string{"a", "b", "c"}, subs[0].Requests())
	assert.Equal(t, []string{"d", "e"}, subs[1].Requests())
}

func TestSplitDropsResults(t *testing.T) {
	b := task.NewBuilder()
	require.NoError(t, b.SetName("T"))
	require.NoError(t, b.AddEntryWithResult("a", "old"))
	require.NoError(t, b.AddEntry("b"))
	in, err := b.Build()
	require.NoError(t, err)

	subs, err := Split(in, 1)
	require.NoError(t, err)
	for _, e := range subs[0].Entries() {
		assert.False(t, e.HasResult(), "sub-task carried a result for %s", e.Request)
	}
}

func TestSplitErrors(t *testing.T) {
	_, err := Split(nil, 2)
	assert.ErrorIs(t, err, task.ErrInvalidArgument)

	_, err = Split(buildTask(t, "T"), 2)
	assert.ErrorIs(t, err, task.ErrInvalidArgument)

	_, err = Split(buildTask(t, "T", "a"), 0)
	assert.ErrorIs(t, err, cluster.ErrTopology)
}

// TestSplitProperties checks, for arbitrary sizes, that the split never needs
// more workers than it was given, never yields an empty sub-task, and that
// Merge restores the original request order.
func TestSplitProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		total := rapid.IntRange(1, 500).Draw(rt, "total")
		workers := rapid.IntRange(1, 20).Draw(rt, "workers")
		in := buildTask(rt, "T", numbered(total)...)

		subs, err := Split(in, workers)
		require.NoError(rt, err)

		chunk := ChunkSize(total, workers)
		require.LessOrEqual(rt, len(subs), workers)
		require.Equal(rt, (total+chunk-1)/chunk, len(subs))
		for i, s := range subs {
			require.False(rt, s.IsEmpty())
			if i < len(subs)-1 {
				require.Equal(rt, chunk, s.Size())
			}
		}

		merged, err := Merge(subs)
		require.NoError(rt, err)
		require.Equal(rt, in.Requests(), merged.Requests())
		require.Equal(rt, "[Merged]T0", merged.Name())
	})
}

func TestMerge(t *testing.T) {
	withResults := func(name string, requests ...string) *task.Task {
		b := task.NewBuilder()
		require.NoError(t, b.SetName(name))
		for _, r := range requests {
			require.NoError(t, b.AddEntryWithResult(r, "R"))
		}
		out, err := b.Build()
		require.NoError(t, err)
		return out
	}

	merged, err := Merge([]*task.Task{withResults("T0", "a", "b", "c"), withResults("T1", "d")})
	require.NoError(t, err)
	assert.Equal(t, "[Merged]T0", merged.Name())
	assert.Equal(t, []string{"a", "b", "c", "d"}, merged.Requests())
	for _, r := range merged.Requests() {
		res, ok := merged.Result(r)
		assert.True(t, ok)
		assert.Equal(t, "R", res)
	}

	// Entries without results merge as absent, not empty.
	merged, err = Merge([]*task.Task{buildTask(t, "T0", "x")})
	require.NoError(t, err)
	_, ok := merged.Result("x")
	assert.False(t, ok)
}

func TestMergeErrors(t *testing.T) {
	_, err := Merge(nil)
	assert.ErrorIs(t, err, task.ErrInvalidArgument)

	_, err = Merge([]*task.Task{buildTask(t, "T0", "a"), nil})
	assert.ErrorIs(t, err, task.ErrInvalidArgument)

	// The same request in two sub-tasks cannot be merged.
	_, err = Merge([]*task.Task{buildTask(t, "T0", "a"), buildTask(t, "T1", "a")})
	assert.ErrorIs(t, err, task.ErrInvalidArgument)
}

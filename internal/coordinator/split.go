package coordinator

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/dreamware/taskfan/internal/cluster"
	"github.com/dreamware/taskfan/internal/task"
)

// MergedPrefix is prepended to the first sub-task's name to name a merged task.
const MergedPrefix = "[Merged]"

// ChunkSize returns the number of entries per sub-task when total entries are
// split across workerCount workers: total/workerCount + 1.
//
// The +1 means sub-tasks are never smaller than an even share, so the split
// produces ceil(total/ChunkSize) sub-tasks, which never exceeds workerCount and
// may be fewer (3 entries over 3 workers gives 2 sub-tasks of 2 and 1).
func ChunkSize(total, workerCount int) int {
	return total/workerCount + 1
}

// Split partitions t into consecutive sub-tasks of ChunkSize entries, the last
// one holding whatever remains. Sub-task i is named t.Name()+i and carries only
// the requests; results are left absent.
//
// Empty trailing sub-tasks are never produced.
func Split(t *task.Task, workerCount int) ([]*task.Task, error) {
	if t.IsEmpty() {
		return nil, fmt.Errorf("%w: cannot split an empty task", task.ErrInvalidArgument)
	}
	if workerCount < 1 {
		return nil, fmt.Errorf("%w: no workers to split %q across", cluster.ErrTopology, t.Name())
	}

	chunk := ChunkSize(t.Size(), workerCount)
	subTasks := make([]*task.Task, 0, (t.Size()+chunk-1)/chunk)

	b := task.NewBuilder()
	index := 0
	start := func() error {
		return b.SetName(t.Name() + strconv.Itoa(index))
	}
	if err := start(); err != nil {
		return nil, err
	}
	for _, req := range t.Requests() {
		if err := b.AddEntry(req); err != nil {
			return nil, err
		}
		if b.Len() == chunk {
			sub, err := b.Build()
			if err != nil {
				return nil, err
			}
			subTasks = append(subTasks, sub)
			index++
			if err := start(); err != nil {
				return nil, err
			}
		}
	}
	if b.Len() > 0 {
		sub, err := b.Build()
		if err != nil {
			return nil, err
		}
		subTasks = append(subTasks, sub)
	}
	return subTasks, nil
}

// Merge concatenates the sub-tasks, in order, into one task named
// MergedPrefix + subTasks[0].Name(). Entries keep sub-task order, then the
// order within each sub-task.
func Merge(subTasks []*task.Task) (*task.Task, error) {
	if len(subTasks) == 0 || subTasks[0] == nil {
		return nil, fmt.Errorf("%w: nothing to merge", task.ErrInvalidArgument)
	}
	b := task.NewBuilder()
	if err := b.SetName(MergedPrefix + subTasks[0].Name()); err != nil {
		return nil, err
	}
	for i, sub := range subTasks {
		if sub == nil {
			return nil, fmt.Errorf("%w: sub-task %d is missing", task.ErrInvalidArgument, i)
		}
		for _, e := range sub.Entries() {
			var err error
			if e.HasResult() {
				err = b.AddEntryWithResult(e.Request, *e.Result)
			} else {
				err = b.AddEntry(e.Request)
			}
			if err != nil {
				return nil, fmt.Errorf("merge sub-task %s: %w", sub.Name(), err)
			}
		}
	}
	return b.Build()
}

// sameKeys reports whether got carries exactly the requests of want, in order.
func sameKeys(want, got *task.Task) bool {
	return got != nil && slices.Equal(want.Requests(), got.Requests())
}

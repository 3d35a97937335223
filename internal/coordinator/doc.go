// Package coordinator implements the fan-out/fan-in tier of taskfan: it accepts
// whole tasks from clients, partitions them across a fixed roster of workers,
// waits for every worker and hands back one merged task.
//
// # Overview
//
// A submit cycle has exactly one barrier:
//
//	     Submit(T: task0..task99)
//	               │
//	          Split(T, 2)          chunk = 100/2 + 1 = 51
//	        ┌──────┴──────┐
//	   T0 (51)          T1 (49)
//	        │              │
//	worker[0].Execute  worker[1].Execute     concurrent, bounded
//	        │              │
//	        └──────┬───────┘
//	            barrier                       all-or-nothing
//	               │
//	        Merge → [Merged]T0 (100)
//
// # Core Components
//
// Split and Merge: pure functions over task.Task
//   - chunk size is total/workers + 1, so the split never yields more
//     sub-tasks than there are workers, and may yield fewer
//   - sub-task i is named <task name><i>
//   - Merge keeps sub-task order, then the order inside each sub-task
//
// Roster: the ordered worker list
//   - fixed at construction, duplicates rejected
//   - sub-task i always goes to member i; an index past the end is a
//     topology error
//
// Service: the coordinator itself
//   - dispatches through an errgroup limited to the configured pool size
//   - the first failure cancels the group context and fails the submit
//   - a worker answering with different request keys is a dispatch failure
//
// HealthMonitor: periodic /health checks of each worker
//   - healthy, unhealthy or unknown per member, with consecutive-failure
//     counting
//   - WaitReady is the startup check; the monitor never changes dispatch
//
// # Failure Model
//
// There are no retries and no reassignment. A failed worker call fails the
// whole submit with cluster.ErrDispatch wrapping the cause, and results that
// had already arrived are dropped.
//
// # Thread Safety
//
// Roster is immutable. Service holds no per-submit state, so concurrent
// Submit calls are independent; each gets its own errgroup. HealthMonitor
// guards its records with an RWMutex.
package coordinator

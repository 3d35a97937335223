// Package task defines the unit of work that moves through the system: a
// named, ordered set of request→result entries.
//
// # Lifecycle
//
// Tasks are created only through a Builder:
//
//	b := task.NewBuilder()
//	_ = b.SetName("T")
//	_ = b.AddEntry("a")
//	_ = b.AddEntry("b")
//	t, _ := b.Build() // b is now empty and reusable
//
// Build copies the builder's entries, so nothing done to the builder afterwards
// affects tasks it already produced.
//
// Once built, a task's key set and order never change. Results can be written
// with SetResult, which is how a worker fills in a sub-task. Workers in this
// module write into a Clone and return it rather than touching the caller's
// value.
//
// # Wire form
//
// Payload is the serializable view of a Task:
//
//	{"name": "T", "entries": [{"request": "a", "result": null}, ...]}
//
// FromPayload validates a decoded payload with the same rules as the Builder
// (non-empty name, non-empty unique requests).
//
// # Errors
//
// Every validation failure wraps ErrInvalidArgument; callers test with
// errors.Is.
package task

package task

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a task or builder call receives input it
// cannot accept: an empty name, an empty or duplicate request, or an empty task
// where a non-empty one is required.
var ErrInvalidArgument = errors.New("invalid argument")

// Entry is a single request and its result.
// A nil Result means the request has not been computed yet.
type Entry struct {
	Result  *string `json:"result" msgpack:"result"`
	Request string  `json:"request" msgpack:"request"`
}

// HasResult reports whether the entry carries a computed result.
func (e Entry) HasResult() bool {
	return e.Result != nil
}

// Task is a named, ordered collection of request→result entries.
//
// The key set and its order are fixed once the task is built. Results may be
// rewritten with SetResult; a Task is a parcel for in-flight work and is not
// safe for concurrent use by more than one caller.
type Task struct {
	index   map[string]int // request -> position in entries
	name    string
	entries []Entry
}

// newTask copies entries into fresh storage so later changes to the caller's
// slice never reach the task.
func newTask(name string, entries []Entry) *Task {
	t := &Task{
		name:    name,
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		t.entries[i] = Entry{Request: e.Request, Result: copyResult(e.Result)}
		t.index[e.Request] = i
	}
	return t
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Size returns the number of entries.
func (t *Task) Size() int {
	return len(t.entries)
}

// IsEmpty reports whether t is nil or holds no entries.
func (t *Task) IsEmpty() bool {
	return t == nil || len(t.entries) == 0
}

// Entries returns a copy of the entries in insertion order.
func (t *Task) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = Entry{Request: e.Request, Result: copyResult(e.Result)}
	}
	return out
}

// Requests returns the request keys in insertion order.
func (t *Task) Requests() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Request
	}
	return out
}

// Result returns the result stored for request.
// The second value is false when the request is unknown or has no result yet.
func (t *Task) Result(request string) (string, bool) {
	i, ok := t.index[request]
	if !ok || t.entries[i].Result == nil {
		return "", false
	}
	return *t.entries[i].Result, true
}

// SetResult replaces the result of an existing request in place.
// Unknown requests are rejected so the key set never changes.
func (t *Task) SetResult(request, result string) error {
	i, ok := t.index[request]
	if !ok {
		return fmt.Errorf("%w: request %q is not part of task %q", ErrInvalidArgument, request, t.name)
	}
	t.entries[i].Result = &result
	return nil
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	return newTask(t.name, t.entries)
}

func (t *Task) String() string {
	return fmt.Sprintf("Task{name=%q, size=%d}", t.name, len(t.entries))
}

func copyResult(r *string) *string {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

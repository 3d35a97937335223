package task

import "fmt"

// Builder assembles a Task incrementally.
//
// The name must be set before any entry is added and request keys must be
// unique. Build snapshots the current state into a new Task and resets the
// builder, so one Builder can produce many tasks in sequence.
type Builder struct {
	index   map[string]struct{}
	name    string
	entries []Entry
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]struct{})}
}

// SetName sets the name of the task being built.
func (b *Builder) SetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: task name is empty", ErrInvalidArgument)
	}
	b.name = name
	return nil
}

// AddEntry adds a request with no result.
func (b *Builder) AddEntry(request string) error {
	return b.add(request, nil)
}

// AddEntryWithResult adds a request together with its result.
func (b *Builder) AddEntryWithResult(request, result string) error {
	return b.add(request, &result)
}

func (b *Builder) add(request string, result *string) error {
	if b.name == "" {
		return fmt.Errorf("%w: task name must be set before adding entries", ErrInvalidArgument)
	}
	if request == "" {
		return fmt.Errorf("%w: request is empty", ErrInvalidArgument)
	}
	if b.index == nil {
		b.index = make(map[string]struct{})
	}
	if _, dup := b.index[request]; dup {
		return fmt.Errorf("%w: duplicate request %q in task %q", ErrInvalidArgument, request, b.name)
	}
	b.index[request] = struct{}{}
	b.entries = append(b.entries, Entry{Request: request, Result: result})
	return nil
}

// Len returns the number of entries added since the last Build.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build returns a new Task and resets the builder.
func (b *Builder) Build() (*Task, error) {
	if b.name == "" {
		return nil, fmt.Errorf("%w: task name is not set", ErrInvalidArgument)
	}
	t := newTask(b.name, b.entries)
	b.reset()
	return t, nil
}

func (b *Builder) reset() {
	b.name = ""
	b.entries = nil
	b.index = make(map[string]struct{})
}

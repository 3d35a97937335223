package task

import "fmt"

// Payload is the wire shape of a Task. Codecs encode and decode this struct;
// the Task itself never crosses a process boundary.
type Payload struct {
	Name    string  `json:"name" msgpack:"name"`
	Entries []Entry `json:"entries" msgpack:"entries"`
}

// Payload returns the wire form of t.
func (t *Task) Payload() Payload {
	return Payload{Name: t.name, Entries: t.Entries()}
}

// FromPayload rebuilds a Task from its wire form, applying the same checks as
// the Builder.
func FromPayload(p Payload) (*Task, error) {
	b := NewBuilder()
	if err := b.SetName(p.Name); err != nil {
		return nil, err
	}
	for i, e := range p.Entries {
		var err error
		if e.Result != nil {
			err = b.AddEntryWithResult(e.Request, *e.Result)
		} else {
			err = b.AddEntry(e.Request)
		}
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return b.Build()
}

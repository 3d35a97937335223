package coordinator

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/dreamware/taskfan/internal/cluster"
)

// Member is one worker in the roster: where it lives and how to call it.
type Member struct {
	Worker   cluster.Worker
	Endpoint cluster.Endpoint
}

// Roster is the fixed, ordered list of workers a coordinator dispatches to.
// Sub-task i always goes to member i.
//
// A Roster is built once and never modified, so it is safe for concurrent
// reads without locking.
type Roster struct {
	members []Member
}

// NewRoster builds a roster from members. Endpoints must be valid and unique.
func NewRoster(members ...Member) (*Roster, error) {
	seen := make([]cluster.Endpoint, 0, len(members))
	for i, m := range members {
		if m.Worker == nil {
			return nil, fmt.Errorf("roster member %d (%s): no worker", i, m.Endpoint)
		}
		if err := m.Endpoint.Validate(); err != nil {
			return nil, fmt.Errorf("roster member %d: %w", i, err)
		}
		if slices.Contains(seen, m.Endpoint) {
			return nil, fmt.Errorf("roster member %d: duplicate endpoint %s", i, m.Endpoint)
		}
		seen = append(seen, m.Endpoint)
	}
	return &Roster{members: slices.Clone(members)}, nil
}

// NewRemoteRoster builds a roster of HTTP worker clients, one per endpoint.
func NewRemoteRoster(endpoints []cluster.Endpoint, opts cluster.ClientOptions) (*Roster, error) {
	members := make([]Member, len(endpoints))
	for i, ep := range endpoints {
		members[i] = Member{Endpoint: ep, Worker: cluster.NewWorkerClient(ep, opts)}
	}
	return NewRoster(members...)
}

// Len returns the number of workers.
func (r *Roster) Len() int {
	return len(r.members)
}

// At returns the member at position i, or ErrTopology when i is outside the
// roster.
func (r *Roster) At(i int) (Member, error) {
	if i < 0 || i >= len(r.members) {
		return Member{}, fmt.Errorf("%w: sub-task %d has no worker, roster holds %d", cluster.ErrTopology, i, len(r.members))
	}
	return r.members[i], nil
}

// Endpoints returns the endpoints in roster order.
func (r *Roster) Endpoints() []cluster.Endpoint {
	out := make([]cluster.Endpoint, len(r.members))
	for i, m := range r.members {
		out[i] = m.Endpoint
	}
	return out
}
